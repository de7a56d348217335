package services

import (
	"math"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// newTestServices wires the given AI services into a runtime registry.
// Pass nil to leave a service unconfigured.
func newTestServices(embedding driven.EmbeddingService, chat driven.ChatService) *runtime.Services {
	services := runtime.NewServices(domain.NewRuntimeConfig("none", "postgres"))
	if embedding != nil {
		services.SetEmbeddingService(embedding)
	}
	if chat != nil {
		services.SetChatService(chat)
	}
	return services
}

// newPlaneEmbedder returns a 2-d embedder, handy for placing vectors at exact angles.
func newPlaneEmbedder() *mocks.MockEmbeddingService {
	m := mocks.NewMockEmbeddingService()
	m.SetDimensions(2)
	return m
}

// unitAt returns a 2-d unit vector whose cosine with (1,0) is score.
func unitAt(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}
