package middleware

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// TokenHeader carries the session token of the signed-in user.
const TokenHeader = "X-PPR-TOKEN"

type sessionCtxKey struct{}

type sessionLookup interface {
	Lookup(ctx context.Context, token string) (*auth.Session, error)
}

// WithSession returns a copy of ctx carrying the session.
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFromContext returns the session put in place by AuthCheck.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*auth.Session)
	return session, ok && session != nil
}

type AuthMiddlewareHandler struct {
	sessions             sessionLookup
	allowedPaths         map[string]bool
	allowedPathsPrefixes []string
}

func NewAuthMiddlewareHandler(sessions sessionLookup) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessions: sessions,
		allowedPaths: map[string]bool{
			"/health": true,

			"/auth/signup":        true,
			"/auth/signin":        true,
			"/auth/reset":         true,
			"/auth/reset/confirm": true,

			// the exercise library is public, changing it is not
			"GET /exercises": true,
		},
		allowedPathsPrefixes: []string{
			"/images/",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(method, path string) bool {
	if h.allowedPaths[path] || h.allowedPaths[method+" "+path] {
		return true
	}
	for _, prefix := range h.allowedPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.pathIsAlwaysAllowed(r.Method, r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get(TokenHeader)
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			session, err := h.sessions.Lookup(ctx, authToken)
			if err != nil {
				if errors.Is(err, auth.ErrSessionNotFound) {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
					span.SetStatus(codes.Error, "not-logged")
				} else {
					log.Errorf("[failed session lookup] => %s: %s", r.URL.Path, err)
					span.SetStatus(codes.Error, "session-lookup-err")
					span.RecordError(err)
				}
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
