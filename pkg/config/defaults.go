package config

// Task identifiers used in the route table. Each agent resolves its
// route by task; unknown tasks fall back to TaskSynthesis.
const (
	TaskKeyphrase      = "keyphrase"
	TaskQueryExpansion = "query_expansion"
	TaskSentiment      = "sentiment"
	TaskTopics         = "topics"
	TaskCompetitors    = "competitors"
	TaskTrend          = "trend_forecaster"
	TaskSynthesis      = "synthesis"
	TaskEvents         = "events"
	TaskAsk            = "ask"
	TaskGraph          = "graph"
	TaskMemoryOps      = "memory_ops"
	TaskRerank         = "rerank"
)

// builtinDefaults returns the built-in configuration baseline. User
// YAML is merged on top; anything the user omits keeps these values.
func builtinDefaults() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			WindowDefault: "24h",
			KFinalDefault: 6,
			CacheTTLSec:   300,
		},
		Budget: BudgetConfig{
			MaxTokensPerCommand:      24576,
			MaxCostCentsPerCommand:   50,
			MaxDurationSec:           45,
			MaxCommandsPerUserDaily:  200,
			MaxCostCentsPerUserDaily: 1000,
		},
		Memory: MemoryConfig{
			EmbeddingProvider: "openai",
			EmbeddingModel:    "text-embedding-3-small",
			EmbeddingDim:      1536,
		},
		Providers: map[string]ProviderConfig{
			"model-G": {Provider: "gemini", Model: "gemini-2.0-flash", APIKeyEnv: "GOOGLE_API_KEY", MaxConcurrent: 8},
			"model-C": {Provider: "anthropic", Model: "claude-sonnet-4-20250514", APIKeyEnv: "ANTHROPIC_API_KEY", MaxConcurrent: 8},
			"model-O": {Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY", MaxConcurrent: 8},
		},
		Routes: map[string]RouteConfig{
			TaskKeyphrase:      {Primary: "model-G", Fallbacks: []string{"model-C", "model-O"}, Timeout: "10s"},
			TaskQueryExpansion: {Primary: "model-G", Fallbacks: []string{"model-C", "model-O"}, Timeout: "8s"},
			TaskSentiment:      {Primary: "model-O", Fallbacks: []string{"model-C"}, Timeout: "12s"},
			TaskTopics:         {Primary: "model-C", Fallbacks: []string{"model-O", "model-G"}, Timeout: "15s"},
			TaskCompetitors:    {Primary: "model-C", Fallbacks: []string{"model-O", "model-G"}, Timeout: "18s"},
			TaskGraph:          {Primary: "model-C", Fallbacks: []string{"model-O", "model-G"}, Timeout: "18s"},
			TaskTrend:          {Primary: "model-O", Fallbacks: []string{"model-C", "model-G"}, Timeout: "15s"},
			TaskSynthesis:      {Primary: "model-O", Fallbacks: []string{"model-C", "model-G"}, Timeout: "15s"},
			TaskEvents:         {Primary: "model-O", Fallbacks: []string{"model-C", "model-G"}, Timeout: "18s"},
			TaskAsk:            {Primary: "model-O", Fallbacks: []string{"model-C", "model-G"}, Timeout: "18s"},
			TaskMemoryOps:      {Primary: "model-G", Fallbacks: []string{"model-O"}, Timeout: "12s"},
			TaskRerank:         {Primary: "model-G", Fallbacks: []string{"model-O"}, Timeout: "8s"},
		},
		Cleanup: CleanupConfig{Interval: "1h"},
	}
}
