package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	errx "github.com/taskchat/server/internal/core/error"
	logx "github.com/taskchat/server/pkg/logger"
)

type contextKey string

const (
	ctxKeyRequestID contextKey = "request_id"
	ctxKeyUserID    contextKey = "user_id"
)

// requestIDFrom returns the correlation id attached by the middleware.
func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return "unknown"
}

func userIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// requestIDMiddleware attaches a uuid to every request for correlation in
// logs and error responses.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)
		logx.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.statusCode).
			Dur("elapsed", time.Since(start)).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("request handled")
	})
}

// authenticator resolves bearer tokens to user ids from a static env-supplied
// map. It stands in for whatever real identity provider fronts this service;
// the rest of the code only ever sees the resolved user id.
type authenticator struct {
	byToken map[string]string
}

func newAuthenticator(spec string) (*authenticator, error) {
	byToken := map[string]string{}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("invalid auth token entry %q", pair)
		}
		byToken[token] = user
	}
	if len(byToken) == 0 {
		return nil, fmt.Errorf("no auth tokens configured")
	}
	return &authenticator{byToken: byToken}, nil
}

func (a *authenticator) resolve(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	user, ok := a.byToken[strings.TrimSpace(token)]
	return user, ok
}

// authMiddleware authenticates the request and enforces that the path user
// matches the authenticated one. The user row is created implicitly on first
// access.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.auth.resolve(r)
		if !ok {
			writeError(w, r, errx.Unauthorized("unauthorized"))
			return
		}
		if pathUser := mux.Vars(r)["userId"]; pathUser != user {
			logx.Warn().
				Str("path_user_id", pathUser).
				Str("auth_user_id", user).
				Str("request_id", requestIDFrom(r.Context())).
				Msg("user id mismatch")
			writeError(w, r, errx.Unauthorized("user id mismatch"))
			return
		}

		if err := s.store.EnsureUser(r.Context(), user); err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID, user)))
	})
}
