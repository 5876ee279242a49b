package model

// ================ Config ================

// ChatModelConfig configures the single Gemini model used for both the tool
// round and the follow-up confirmation call.
type ChatModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"8192"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.3"`
}

// AgentConfig bounds a single orchestration run.
type AgentConfig struct {
	// TimeoutSeconds is the overall budget for one run: both model calls and
	// all tool executions together. There is no retry inside the budget.
	TimeoutSeconds int `envconfig:"AGENT_TIMEOUT" default:"30"`
	// ProviderName tags provider-issued identifiers in the per-run ID mapper.
	ProviderName string `envconfig:"AGENT_PROVIDER_NAME" default:"gemini"`
}

// HistoryConfig controls how much persisted history is replayed to the model.
type HistoryConfig struct {
	// SoftLimit is the persisted-message count above which the default
	// pagination kicks in.
	SoftLimit int `envconfig:"HISTORY_SOFT_LIMIT" default:"100"`
	// RecentWindow is how many of the most recent messages survive pagination.
	RecentWindow int `envconfig:"HISTORY_RECENT_WINDOW" default:"30"`
}
