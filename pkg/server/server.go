// Package server exposes the router over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grindhub/pkg/config"
	"grindhub/pkg/logx"
	"grindhub/pkg/router"
	"grindhub/pkg/session"
)

// maxRequestBytes caps a chat request body.
const maxRequestBytes = 64 << 10

// TurnHandler is the part of router.Engine the server needs.
type TurnHandler interface {
	HandleTurn(ctx context.Context, s *session.Session, message string) *router.Turn
	ResetContext(s *session.Session)
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the reply to POST /v1/chat.
type ChatResponse struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent,omitempty"`
	TurnID string `json:"turn_id"`
	State  string `json:"state"`
}

// Server serves chat turns. Turns for the same user are serialized.
type Server struct {
	cfg      config.ServerConfig
	engine   TurnHandler
	store    session.Store
	locks    *session.Locker
	gatherer prometheus.Gatherer
	logger   *logx.Logger
}

// New creates a server. A nil gatherer disables /metrics.
func New(cfg config.ServerConfig, engine TurnHandler, store session.Store, gatherer prometheus.Gatherer) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		store:    store,
		locks:    session.NewLocker(),
		gatherer: gatherer,
		logger:   logx.NewLogger("server"),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Delete("/sessions/{userID}/context", s.handleReset)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleChat implements POST /v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "user_id and message are required", http.StatusBadRequest)
		return
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	ctx := r.Context()
	sess, err := s.store.Load(ctx, req.UserID)
	if err != nil {
		s.logger.Error("Failed to load session for %s: %v", req.UserID, err)
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	turn := s.engine.HandleTurn(ctx, sess, req.Message)
	if err := s.store.Save(ctx, sess); err != nil {
		// The reply is still delivered; the next turn starts from the stored context.
		s.logger.Warn("Failed to save session for %s: %v", req.UserID, err)
	}

	resp := ChatResponse{
		Reply:  turn.Reply,
		Intent: string(turn.Intent),
		TurnID: turn.ID,
		State:  string(turn.State),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode chat response: %v", err)
	}
}

// handleReset implements DELETE /v1/sessions/{userID}/context.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.store.Load(r.Context(), userID)
	if err == nil {
		s.engine.ResetContext(sess)
		err = s.store.Delete(r.Context(), userID)
	}
	if err != nil {
		s.logger.Error("Failed to reset session for %s: %v", userID, err)
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}
	s.logger.Info("context reset for %s", userID)
	w.WriteHeader(http.StatusNoContent)
}
