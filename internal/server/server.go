package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

const (
	maxBodyBytes      = 1 << 20
	defaultListLimit  = 50
	maxListLimit      = 500
	readHeaderTimeout = 10 * time.Second
)

//go:embed static/index.html
var indexHTML []byte

// Config is bound from SERVER_* variables.
type Config struct {
	Addr            string        `envconfig:"SERVER_ADDR" default:"127.0.0.1:7860"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"3m"`
}

// Server exposes the router over HTTP together with the browser test form.
type Server struct {
	cfg        Config
	runner     graph.Runner
	repo       model.ConversationRepository
	httpServer *http.Server
}

func New(cfg Config, runner graph.Runner, repo model.ConversationRepository) *Server {
	s := &Server{cfg: cfg, runner: runner, repo: repo}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		// model calls can take most of RequestTimeout
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleNewSession)
	mux.HandleFunc("GET /api/sessions/{key}", s.handleGetSession)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return withLogging(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		logx.Info().Dur("timeout", s.cfg.ShutdownTimeout).Msg("HTTP server shutting down")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
		return nil
	})

	return g.Wait()
}

type errorResponse struct {
	Error string `json:"error"`
}

type sessionsResponse struct {
	Sessions []model.SessionSummary `json:"sessions"`
}

type newSessionResponse struct {
	SessionKey string `json:"session_key"`
}

type sessionResponse struct {
	SessionKey string              `json:"session_key"`
	Messages   []model.MessageView `json:"messages"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, errx.BadRequest(err))
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.runner.Invoke(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, errx.BadRequest(fmt.Errorf("invalid limit %q", raw)))
			return
		}
		limit = min(n, maxListLimit)
	}

	sessions, err := s.repo.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, errx.WrapState(err))
		return
	}
	if sessions == nil {
		sessions = []model.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse{SessionKey: model.NewSessionKey()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, errx.BadRequest(errors.New("empty session key")))
		return
	}

	conv, err := s.repo.LoadConversation(r.Context(), key)
	if err != nil {
		writeError(w, errx.WrapState(err))
		return
	}
	var turns []model.Turn
	if conv != nil {
		turns = conv.Turns
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionKey: key, Messages: model.Views(turns)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError maps err to its status and safe message; details stay in logs.
func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if errors.Is(err, context.DeadlineExceeded) && status == http.StatusInternalServerError {
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorResponse{Error: errx.MessageOf(err)})
}
