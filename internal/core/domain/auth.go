package domain

// Role defines user permission level
type Role string

const (
	RoleStudent  Role = "student"  // Chat over published documents
	RoleLecturer Role = "lecturer" // Manage course documents
	RoleAdmin    Role = "admin"    // Manage everything
)

// IsValid returns true if this is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManageDocuments reports whether the role may build or drop document stores
func (r Role) CanManageDocuments() bool {
	return r == RoleAdmin || r == RoleLecturer
}

// ServicePrincipal is the user ID given to callers authenticated by service key
const ServicePrincipal = "service"

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`

	// Service is set for machine callers using the shared service key
	Service bool `json:"service,omitempty"`
}

// NewServiceAuthContext is the auth context of a service-key caller
func NewServiceAuthContext() *AuthContext {
	return &AuthContext{UserID: ServicePrincipal, Service: true}
}

// IsAdmin checks if the authenticated user is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManageDocuments reports whether the caller may build or drop document stores
func (a *AuthContext) CanManageDocuments() bool {
	return a.Service || a.Role.CanManageDocuments()
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// AuthContext converts validated claims into a request auth context
func (c *TokenClaims) AuthContext() *AuthContext {
	return &AuthContext{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
	}
}
