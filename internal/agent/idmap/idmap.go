package idmap

import (
	"fmt"

	logx "github.com/taskchat/server/pkg/logger"
)

// base keeps generated ids clear of the small integer ranges providers tend
// to reuse for stream items.
const base = 1000

// Mapper assigns collision-free identifiers to provider-issued ids. Two
// providers (or two sessions of one provider) may hand out the same small id
// for different logical items; the mapper keys on the (provider id, provider
// name) pair so each distinct pair gets its own monotonically increasing id,
// and repeats of the same pair get the same id back.
//
// A Mapper is scoped to exactly one orchestration run: construct it at the
// start of the run and discard it afterwards. It is not safe for concurrent
// use and must never be shared across requests.
type Mapper struct {
	ids     map[string]int64
	audit   map[int64]string
	counter int64
}

func New() *Mapper {
	return &Mapper{
		ids:   make(map[string]int64),
		audit: make(map[int64]string),
	}
}

// Map returns the unique id for the (providerID, providerName) pair,
// assigning a fresh one above the safety threshold on first sight.
func (m *Mapper) Map(providerID, providerName string) int64 {
	key := providerName + "\x00" + providerID
	if id, ok := m.ids[key]; ok {
		return id
	}

	m.counter++
	id := base + m.counter
	m.ids[key] = id
	m.audit[id] = fmt.Sprintf("%s_%s", providerName, providerID)

	logx.Debug().
		Str("provider_id", providerID).
		Str("provider", providerName).
		Int64("unique_id", id).
		Msg("provider id mapped")

	return id
}

// Original returns the provider-prefixed source id for a generated id.
func (m *Mapper) Original(uniqueID int64) (string, bool) {
	s, ok := m.audit[uniqueID]
	return s, ok
}

// Len reports how many distinct provider ids have been mapped.
func (m *Mapper) Len() int {
	return len(m.ids)
}

// Reset clears all mappings and restarts the counter.
func (m *Mapper) Reset() {
	m.ids = make(map[string]int64)
	m.audit = make(map[int64]string)
	m.counter = 0
}
