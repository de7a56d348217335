package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

const testServiceKey = "svc-key"

type mockRAGService struct {
	buildFn  func(ctx context.Context, text, documentID string) (*domain.SerializedStore, error)
	indexFn  func(ctx context.Context, documentID, text string) (*domain.StoredVectorStore, error)
	deleteFn func(ctx context.Context, documentID string) error
	getFn    func(ctx context.Context, documentID string) (*domain.StoredVectorStore, error)
	answerFn func(ctx context.Context, query string, stores []*domain.SerializedStore, k int, threshold float64) (*domain.RetrievalResult, error)
	queryFn  func(ctx context.Context, req driving.QueryRequest) (*domain.RetrievalResult, error)
	askFn    func(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error)
}

var _ driving.RAGService = (*mockRAGService)(nil)

func (m *mockRAGService) BuildVectorStoreForDocument(ctx context.Context, text, documentID string) (*domain.SerializedStore, error) {
	if m.buildFn != nil {
		return m.buildFn(ctx, text, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) IndexDocument(ctx context.Context, documentID, text string) (*domain.StoredVectorStore, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, documentID, text)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) DeleteDocument(ctx context.Context, documentID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, documentID)
	}
	return errors.New("not implemented")
}

func (m *mockRAGService) GetDocumentStore(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	if m.getFn != nil {
		return m.getFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) AnswerQuery(ctx context.Context, query string, stores []*domain.SerializedStore, k int, threshold float64) (*domain.RetrievalResult, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, query, stores, k, threshold)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) Query(ctx context.Context, req driving.QueryRequest) (*domain.RetrievalResult, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) Ask(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error) {
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockTitleService struct {
	title string
	got   string
}

func (m *mockTitleService) GenerateTitle(ctx context.Context, message string) string {
	m.got = message
	return m.title
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a server with the mock auth adapter; the service key
// hash equals the key because the mock compares plainly.
func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	if deps.RAGService == nil {
		deps.RAGService = &mockRAGService{}
	}
	if deps.TitleService == nil {
		deps.TitleService = &mockTitleService{}
	}
	if deps.Auth == nil {
		deps.Auth = mocks.NewMockAuthAdapter()
	}
	deps.Logger = quietLogger()

	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.ServiceKeyHash = testServiceKey
	cfg.CORSOrigins = []string{"https://app.example.com"}
	return NewServer(cfg, deps)
}

func tokenFor(t *testing.T, role domain.Role) string {
	t.Helper()
	token, err := mocks.NewMockAuthAdapter().GenerateToken(&domain.TokenClaims{
		UserID: "user-1",
		Email:  "user@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// do sends a request through the full middleware chain
func do(t *testing.T, s *Server, method, path string, body any, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}
