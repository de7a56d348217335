package domain

import "testing"

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleStudent, true},
		{RoleLecturer, true},
		{RoleAdmin, true},
		{Role("member"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRole_CanManageDocuments(t *testing.T) {
	if RoleStudent.CanManageDocuments() {
		t.Error("students should not manage documents")
	}
	if !RoleLecturer.CanManageDocuments() {
		t.Error("lecturers should manage documents")
	}
	if !RoleAdmin.CanManageDocuments() {
		t.Error("admins should manage documents")
	}
}

func TestAuthContext_IsAdmin(t *testing.T) {
	admin := &AuthContext{Role: RoleAdmin}
	if !admin.IsAdmin() {
		t.Error("expected admin")
	}

	lecturer := &AuthContext{Role: RoleLecturer}
	if lecturer.IsAdmin() {
		t.Error("lecturer is not admin")
	}
}

func TestTokenClaims_AuthContext(t *testing.T) {
	claims := &TokenClaims{UserID: "u1", Email: "a@b.c", Role: RoleLecturer, IssuedAt: 1, ExpiresAt: 2}
	ctx := claims.AuthContext()

	if ctx.UserID != "u1" || ctx.Email != "a@b.c" || ctx.Role != RoleLecturer {
		t.Errorf("unexpected auth context: %+v", ctx)
	}
}

func TestAuthContext_CanManageDocuments(t *testing.T) {
	tests := []struct {
		name string
		ctx  *AuthContext
		want bool
	}{
		{"student", &AuthContext{Role: RoleStudent}, false},
		{"lecturer", &AuthContext{Role: RoleLecturer}, true},
		{"admin", &AuthContext{Role: RoleAdmin}, true},
		{"service key", NewServiceAuthContext(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ctx.CanManageDocuments(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
