package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	auth "github.com/Turbo-Dex/backend"
	"github.com/Turbo-Dex/backend/middleware"
)

const maxBodyBytes = 1 << 16

// Engine is the subset of *auth.Engine the handlers call.
type Engine interface {
	Signup(ctx context.Context, username, password, displayName string) (auth.Profile, string, error)
	Login(ctx context.Context, username, password string) (auth.TokenPair, auth.Profile, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ResetPassword(ctx context.Context, username, recoveryCode, newPassword string) error
	Authenticate(ctx context.Context, bearerToken string) (string, error)
}

// Options configures optional routes.
type Options struct {
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// Health reports backend readiness for GET /v1/health and GET /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Server holds the routes of the auth API.
type Server struct {
	engine Engine
	log    *zap.Logger
	opts   Options
	mux    *http.ServeMux
}

// New wires the routes. A nil logger disables request logs.
func New(engine Engine, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{engine: engine, log: log.Named("http"), opts: opts, mux: http.NewServeMux()}

	me := middleware.RequireAuth(engine)(http.HandlerFunc(s.me))

	// Versioned routes served to mobile clients.
	s.mux.HandleFunc("POST /v1/auth/signup", s.signup)
	s.mux.HandleFunc("POST /v1/auth/login", s.login)
	s.mux.HandleFunc("POST /v1/auth/token/refresh", s.refresh)
	s.mux.HandleFunc("POST /v1/auth/logout", s.logout)
	s.mux.HandleFunc("POST /v1/auth/password/reset", s.reset)
	s.mux.Handle("GET /v1/auth/me", me)
	s.mux.HandleFunc("GET /v1/health", s.healthz)

	// Short aliases.
	s.mux.HandleFunc("POST /auth/signup", s.signup)
	s.mux.HandleFunc("POST /auth/login", s.login)
	s.mux.HandleFunc("POST /auth/refresh", s.refresh)
	s.mux.HandleFunc("POST /auth/logout", s.logout)
	s.mux.HandleFunc("POST /auth/reset", s.reset)
	s.mux.Handle("GET /me", me)
	s.mux.HandleFunc("GET /healthz", s.healthz)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// ServeHTTP logs method, path, status and duration of every request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	writeError(w, status, code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Error: code})
}
