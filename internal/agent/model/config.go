package model

import "time"

// ================ Config ================

// MemoryConfig controls Memory Store keying and expiry.
type MemoryConfig struct {
	Backend          string        `envconfig:"MEMORY_BACKEND" default:"redis"`
	KeyPrefix        string        `envconfig:"MEMORY_KEY_PREFIX" default:"telecom"`
	ConversationTTL  time.Duration `envconfig:"MEMORY_CONVERSATION_TTL" default:"24h"`
	UserContextTTL   time.Duration `envconfig:"MEMORY_USER_CONTEXT_TTL" default:"720h"`
	LinkTTL          time.Duration `envconfig:"MEMORY_LINK_TTL" default:"24h"`
	ResponseCacheTTL time.Duration `envconfig:"MEMORY_RESPONSE_CACHE_TTL" default:"5m"`
	MaxHistory       int           `envconfig:"MEMORY_MAX_HISTORY" default:"20"`
}

// PipelineConfig holds the knobs of a single pipeline run.
type PipelineConfig struct {
	CallTimeout         time.Duration `envconfig:"EXTERNAL_CALL_TIMEOUT" default:"10s"`
	RetrievalTopK       int           `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	HistoryWindow       int           `envconfig:"HISTORY_WINDOW" default:"4"`
	IdentifierScanTurns int           `envconfig:"IDENTIFIER_SCAN_TURNS" default:"5"`
	ResponseLanguage    string        `envconfig:"RESPONSE_LANGUAGE" default:"Turkish"`
}

type GraderModelConfig struct {
	Model       string  `envconfig:"GRADER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"GRADER_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"GRADER_TEMPERATURE" default:"0"`
}

type GeneratorModelConfig struct {
	Model       string  `envconfig:"GENERATOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GENERATOR_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"GENERATOR_TEMPERATURE" default:"0.2"`
}

// AccountAPIConfig points at the account-data REST backend.
type AccountAPIConfig struct {
	BaseURL      string        `envconfig:"TELECOM_API_BASE_URL" default:"http://localhost:3000"`
	Timeout      time.Duration `envconfig:"TELECOM_API_TIMEOUT" default:"10s"`
	ProbeTimeout time.Duration `envconfig:"TELECOM_API_PROBE_TIMEOUT" default:"5s"`
}

// SearchConfig selects and configures the document search backend.
type SearchConfig struct {
	Backend        string `envconfig:"SEARCH_BACKEND" default:"pgvector"`
	Collection     string `envconfig:"SEARCH_COLLECTION" default:"telecom_docs"`
	ChromemPath    string `envconfig:"SEARCH_CHROMEM_PATH" default:"./data/chromem"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"nomic-embed-text"`
	OllamaURL      string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
}

type ServerConfig struct {
	Addr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"90s"`
}
