package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/avelkers/medrecord/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

// authMiddleware resolves the bearer token to the acting user once per
// request and stores the user in the request context. Handlers behind it can
// rely on userFromContext always succeeding.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}
