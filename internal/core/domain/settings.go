package domain

import (
	"fmt"
	"time"
)

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderGoogle AIProvider = "google" // Gemini API
	AIProviderOllama AIProvider = "ollama" // OpenAI-compatible, self-hosted
)

// Pipeline defaults
const (
	DefaultChunkSize           = 1024
	DefaultChunkOverlap        = 100
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.7
	DefaultEmbedBatchSize      = 100
	DefaultTitleMaxLength      = 50
	DefaultTitleLanguage       = "Vietnamese"
)

// RAGSettings holds the tunable knobs of the retrieval pipeline
type RAGSettings struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// TopK is the default number of candidates taken before threshold filtering
	TopK int `json:"top_k" yaml:"top_k"`

	// SimilarityThreshold is the default minimum score; corpora calibrate differently
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	EmbedBatchSize int `json:"embed_batch_size" yaml:"embed_batch_size"`

	// TitleMaxLength is the rune budget for chat titles, including the ellipsis
	TitleMaxLength int    `json:"title_max_length" yaml:"title_max_length"`
	TitleLanguage  string `json:"title_language" yaml:"title_language"`
}

// DefaultRAGSettings returns sensible defaults
func DefaultRAGSettings() RAGSettings {
	return RAGSettings{
		ChunkSize:           DefaultChunkSize,
		ChunkOverlap:        DefaultChunkOverlap,
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		EmbedBatchSize:      DefaultEmbedBatchSize,
		TitleMaxLength:      DefaultTitleMaxLength,
		TitleLanguage:       DefaultTitleLanguage,
	}
}

// Validate checks pipeline parameters
func (s RAGSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, s.ChunkOverlap, s.ChunkSize)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, s.TopK)
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v outside [0,1]", ErrInvalidConfig, s.SimilarityThreshold)
	}
	if s.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: embed batch size must be positive, got %d", ErrInvalidConfig, s.EmbedBatchSize)
	}
	if s.TitleMaxLength < 4 {
		return fmt.Errorf("%w: title max length must be at least 4, got %d", ErrInvalidConfig, s.TitleMaxLength)
	}
	return nil
}

// RetrySettings is the explicit retry policy of the AI adapters
type RetrySettings struct {
	MaxAttempts    int           `json:"max_attempts" yaml:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`

	// RequestTimeout bounds each individual HTTP attempt
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// RequestsPerSecond throttles outbound calls; 0 disables throttling
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// DefaultRetrySettings mirrors the retry budget the hosted SDKs ship with
func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// AISettings holds AI service configuration (embedding and LLM)
type AISettings struct {
	Embedding EmbeddingSettings `json:"embedding"`
	LLM       LLMSettings       `json:"llm"`
	Retry     RetrySettings     `json:"retry"`
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider" yaml:"provider"`
	Model    string     `json:"model" yaml:"model"`
	APIKey   string     `json:"-" yaml:"-"` // Never serialize; env only
	BaseURL  string     `json:"base_url,omitempty" yaml:"base_url"`

	// Dimensions overrides the vector size of models the adapters do not
	// know. Zero uses the built-in table.
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings configures the chat-completion service
type LLMSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama:
		return false // Self-hosted, no API key needed
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderGoogle, AIProviderOllama:
		return true
	default:
		return false
	}
}

// Validate checks if AISettings are valid
func (s *AISettings) Validate() error {
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrInvalidConfig)
	}
	return nil
}
