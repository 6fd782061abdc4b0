package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/auth"
)

type contextKey string

const (
	actorContextKey   contextKey = "actor"
	sessionContextKey contextKey = "session"
)

// SessionCookie is the cookie that may carry the session token
const SessionCookie = "session"

// SessionValidator resolves a session token
type SessionValidator interface {
	ValidateSession(token string) (*auth.Session, error)
}

// Auth creates authentication middleware. It attaches the session and the
// actor, including the caller's network origin, to the request context.
func Auth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := validator.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			actor := session.Actor()
			actor.Origin = ClientOrigin(r)

			ctx := r.Context()
			ctx = context.WithValue(ctx, sessionContextKey, session)
			ctx = context.WithValue(ctx, actorContextKey, &actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// ClientOrigin returns the first X-Forwarded-For hop, or the remote host
func ClientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetActor returns the authenticated actor from the request context
func GetActor(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(actorContextKey).(*model.Actor)
	return actor
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// MustGetActor returns the authenticated actor or panics
func MustGetActor(ctx context.Context) *model.Actor {
	actor := GetActor(ctx)
	if actor == nil {
		panic("no actor in context - auth middleware not applied?")
	}
	return actor
}
