package api

import (
	"net/http"
	"strings"

	"shiptrack/internal/auth"
)

// principal verifies the bearer token of r. Requests without a valid token
// are anonymous.
func (s *Server) principal(r *http.Request) (auth.Principal, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") || s.Auth == nil {
		return auth.Principal{}, false
	}
	pr, err := s.Auth.Verify(authz[len("Bearer "):])
	if err != nil {
		s.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
		return auth.Principal{}, false
	}
	return pr, true
}

// requireAdmin rejects requests that do not carry an admin token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pr, ok := s.principal(r)
		if !ok {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required", r.URL.Path)
			return
		}
		if !pr.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
