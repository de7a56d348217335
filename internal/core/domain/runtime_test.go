package domain

import (
	"testing"
)

func TestNewRuntimeConfig(t *testing.T) {
	config := NewRuntimeConfig("redis", "postgres")

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.CacheBackend != "redis" {
		t.Errorf("expected redis cache, got %s", config.CacheBackend)
	}
	if config.LockBackend != "postgres" {
		t.Errorf("expected postgres lock, got %s", config.LockBackend)
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable initially")
	}
	if config.LLMAvailable() {
		t.Error("expected LLM to be unavailable initially")
	}
}

func TestRuntimeConfig_EmbeddingAvailable(t *testing.T) {
	config := NewRuntimeConfig("none", "postgres")

	config.SetEmbeddingAvailable(true)
	if !config.EmbeddingAvailable() {
		t.Error("expected embedding to be available after setting")
	}

	config.SetEmbeddingAvailable(false)
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable after clearing")
	}
}

func TestRuntimeConfig_Capabilities(t *testing.T) {
	tests := []struct {
		name         string
		embedding    bool
		llm          bool
		wantIndex    bool
		wantRetrieve bool
		wantAnswer   bool
	}{
		{"nothing configured", false, false, false, false, false},
		{"embedding only", true, false, true, true, false},
		{"llm only", false, true, false, false, false},
		{"both", true, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewRuntimeConfig("redis", "redis")
			config.SetEmbeddingAvailable(tt.embedding)
			config.SetLLMAvailable(tt.llm)

			if got := config.CanIndex(); got != tt.wantIndex {
				t.Errorf("CanIndex: expected %v, got %v", tt.wantIndex, got)
			}
			if got := config.CanRetrieve(); got != tt.wantRetrieve {
				t.Errorf("CanRetrieve: expected %v, got %v", tt.wantRetrieve, got)
			}
			if got := config.CanAnswer(); got != tt.wantAnswer {
				t.Errorf("CanAnswer: expected %v, got %v", tt.wantAnswer, got)
			}
		})
	}
}

func TestRuntimeConfig_ThreadSafety(t *testing.T) {
	config := NewRuntimeConfig("redis", "redis")

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			config.SetEmbeddingAvailable(true)
			config.SetLLMAvailable(true)
			config.SetEmbeddingAvailable(false)
			config.SetLLMAvailable(false)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = config.EmbeddingAvailable()
			_ = config.LLMAvailable()
			_ = config.CanRetrieve()
			_ = config.CanAnswer()
		}
		done <- true
	}()

	<-done
	<-done
}
