// Package api implements the card's HTTP API using chi.
package api

import (
	"context"
	"net/http"
)

// SessionCookie names the cookie carrying the visitor's session ID.
const SessionCookie = "keepsake_session"

type ctxKey struct{}

// SessionEnsurer resolves a possibly unknown session ID to a live one.
type SessionEnsurer interface {
	EnsureSession(ctx context.Context, id string) (string, bool, error)
}

// SessionMiddleware attaches a live session to every request, issuing a new
// cookie when the visitor has none or it has expired.
func SessionMiddleware(sessions SessionEnsurer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
			live, created, err := sessions.EnsureSession(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    live,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, live)))
		})
	}
}

// SessionID returns the session attached by SessionMiddleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
