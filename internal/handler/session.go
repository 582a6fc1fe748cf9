package handler

import (
	"context"
	"net/http"

	"admin-console/internal/models"

	"github.com/google/uuid"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	credentialsKey
)

// Session makes sure every request carries a console session cookie and
// exposes its id to handlers.
func Session(cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					sid = c.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, sid)))
		})
	}
}

func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

func withCredentials(ctx context.Context, creds *models.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFrom returns the credentials RequireAuth loaded, or nil.
func CredentialsFrom(ctx context.Context) *models.Credentials {
	creds, _ := ctx.Value(credentialsKey).(*models.Credentials)
	return creds
}
