package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/auth"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type contextKey string

const actorContextKey contextKey = "actor"

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type Authenticator struct {
	tokens TokenParser
	logger *logger.Logger
}

func NewAuthenticator(tokens TokenParser, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, logger: log}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.actorFromHeader(r)
		if err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// Optional attaches the caller when a token is present. Anonymous callers
// pass through; an invalid token is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		a.Required(next).ServeHTTP(w, r)
	})
}

func (a *Authenticator) actorFromHeader(r *http.Request) (service.Actor, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return service.Actor{}, apperrors.New(apperrors.CodeUnauthorized, "missing bearer token")
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return service.Actor{}, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid or expired token")
	}

	return service.Actor{
		UserId:   claims.UserId,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// RequireRole must run after Authenticator.Required.
func RequireRole(log *logger.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFrom(r.Context())
			if !ok {
				writeError(w, r, log, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeError(w, r, log, apperrors.New(apperrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func actorFrom(ctx context.Context) (service.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(service.Actor)
	return actor, ok
}

// RequestLogger logs one line per request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				log.Warn("HTTP request", fields...)
				return
			}
			log.Info("HTTP request", fields...)
		})
	}
}
