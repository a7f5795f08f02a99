package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/salon-booking/internal/session"
)

type contextKey string

const storeKey contextKey = "sessionStore"

// CookieOptions configures the browser session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Session attaches the browser session's store to the request context. A
// missing or malformed cookie starts a new session and sets the cookie.
func Session(manager *session.Manager, opts CookieOptions) func(http.Handler) http.Handler {
	if opts.Name == "" {
		opts.Name = "salon_sid"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(opts.Name); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				cookie := &http.Cookie{
					Name:     opts.Name,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if opts.TTL > 0 {
					cookie.MaxAge = int(opts.TTL.Seconds())
				}
				http.SetCookie(w, cookie)
			}
			ctx := WithStore(r.Context(), manager.Open(sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithStore returns ctx carrying store.
func WithStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

// StoreFromContext returns the session store attached by Session.
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(storeKey).(*session.Store)
	return store, ok && store != nil
}

// RequireToken rejects requests whose session holds no access token. The
// token is not verified here; the salon API authorizes every call.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "no session")
			return
		}
		if _, ok := store.AccessToken(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
