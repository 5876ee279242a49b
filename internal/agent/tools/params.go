package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errx "github.com/taskchat/server/internal/core/error"
)

// validateParams checks the supplied params against the schema: required
// presence, type, length and enum constraints. Unknown params are ignored
// rather than rejected; models pad calls with extras often enough that
// failing on them would be counterproductive.
func validateParams(s Schema, params map[string]any) *Result {
	for name, spec := range s.Params {
		raw, ok := params[name]
		if !ok || raw == nil {
			if spec.Required {
				r := Failure(errx.KindInvalidParams, fmt.Sprintf("missing required parameter %q", name))
				return &r
			}
			continue
		}

		switch spec.Type {
		case TypeString:
			v, ok := asString(raw)
			if !ok {
				r := Failure(errx.KindInvalidParams, fmt.Sprintf("parameter %q must be a string", name))
				return &r
			}
			if spec.MaxLength > 0 && len(v) > spec.MaxLength {
				r := Failure(errx.KindInvalidParams, fmt.Sprintf("parameter %q exceeds %d characters", name, spec.MaxLength))
				return &r
			}
			if len(spec.Enum) > 0 && !contains(spec.Enum, v) {
				r := Failure(errx.KindInvalidParams,
					fmt.Sprintf("parameter %q must be one of: %s", name, strings.Join(spec.Enum, ", ")))
				return &r
			}
		case TypeInteger:
			if _, ok := asInt64(raw); !ok {
				r := Failure(errx.KindInvalidParams, fmt.Sprintf("parameter %q must be an integer", name))
				return &r
			}
		}
	}
	return nil
}

// asString accepts only genuine strings; numbers are not silently stringified.
func asString(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// asInt64 coerces the shapes JSON decoding and chat models produce: float64
// with an integral value, native ints, and digit strings.
func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		if math.Trunc(v) != v || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringParam(params map[string]any, name string) (string, bool) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return "", false
	}
	return asString(raw)
}

func intParam(params map[string]any, name string) (int64, bool) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, false
	}
	return asInt64(raw)
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
