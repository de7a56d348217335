package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// Accounts live in the application backend; this side only verifies credentials.
type AuthAdapter interface {
	// Service key operations (machine-to-machine callers)
	HashServiceKey(key string) (string, error)
	VerifyServiceKey(key, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
