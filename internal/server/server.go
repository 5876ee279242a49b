package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskchat/server/internal/agent/runner"
	"github.com/taskchat/server/internal/store"
)

// Config holds the HTTP boundary settings.
type Config struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Tokens maps bearer tokens to user ids, format "token:user,token2:user2".
	// The real authentication mechanism is external to this service; the only
	// thing the core consumes is its output, an authenticated user id.
	Tokens string `envconfig:"AUTH_TOKENS" required:"true"`
}

// Server is the thin HTTP boundary over the orchestration runner and the
// turn store. All conversation intelligence lives below it.
type Server struct {
	router  *mux.Router
	runner  *runner.Runner
	store   *store.Store
	limiter RateLimiter
	auth    *authenticator
}

func New(cfg Config, rn *runner.Runner, st *store.Store, limiter RateLimiter) (*Server, error) {
	auth, err := newAuthenticator(cfg.Tokens)
	if err != nil {
		return nil, err
	}
	if limiter == nil {
		limiter = NoopLimiter{}
	}

	s := &Server{
		router:  mux.NewRouter(),
		runner:  rn,
		store:   st,
		limiter: limiter,
		auth:    auth,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/{userId}").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)

	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskId:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)

	api.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversationId:[0-9]+}/messages", s.handleListMessages).Methods(http.MethodGet)
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
