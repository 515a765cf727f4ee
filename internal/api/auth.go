package api

import (
	"context"
	"net/http"

	"github.com/lingoleap/lingoleap/internal/security"
)

type ctxKey struct{}

// authMiddleware resolves the bearer token and stores the learner email in
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization header required", "unauthorized")
			return
		}
		email, err := s.learners.Authenticate(token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, email)))
	})
}

// learnerEmail returns the authenticated learner. Only valid behind authMiddleware.
func learnerEmail(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}
