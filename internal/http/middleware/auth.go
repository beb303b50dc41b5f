package middleware

import (
	"net/http"
	"strings"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/identity"
	"github.com/Dest1on/jobboard/internal/http/response"
)

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(token string) (identity.Principal, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "missing authorization header", nil))
			return
		}
		principal, err := m.principal(authHeader)
		if err != nil {
			response.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
	})
}

// Optional attaches the principal when a valid token is present and lets
// anonymous requests through otherwise.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			if principal, err := m.principal(authHeader); err == nil {
				r = r.WithContext(identity.WithPrincipal(r.Context(), principal))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) principal(authHeader string) (identity.Principal, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return identity.Principal{}, common.NewError(common.CodeUnauthorized, "invalid authorization header", nil)
	}
	principal, err := m.verifier.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return identity.Principal{}, common.NewError(common.CodeUnauthorized, "invalid token", err)
	}
	return principal, nil
}

func PrincipalFromContext(r *http.Request) (identity.Principal, bool) {
	p := identity.FromContext(r.Context())
	return p, !p.Anonymous()
}
