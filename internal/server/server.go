// Package server exposes single-account usage queries over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/metrics"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/session"
)

const shutdownTimeout = 10 * time.Second

// Processor runs the single-account pipeline.
type Processor interface {
	Process(ctx context.Context, cred models.Credential) models.AccountOutcome
}

// RawClient returns unmodified provider payloads for a logged-in session.
type RawClient interface {
	RawImportantData(ctx context.Context, state models.SessionState) (json.RawMessage, error)
	RawFluxPackage(ctx context.Context, state models.SessionState) (json.RawMessage, error)
}

// Options configures a Server. Sessions and Raw are only needed in dev mode.
type Options struct {
	Processor Processor
	Sessions  *session.Manager
	Raw       RawClient
	Metrics   *metrics.Recorder
	APIKey    string
	Dev       bool
}

// Server serves the query API.
type Server struct {
	processor Processor
	sessions  *session.Manager
	raw       RawClient
	router    chi.Router
}

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data any    `json:"data,omitempty"`
	Msg  string `json:"msg,omitempty"`
	Code int    `json:"code"`
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		processor: opts.Processor,
		sessions:  opts.Sessions,
		raw:       opts.Raw,
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(APIKeyMiddleware(opts.APIKey))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{Code: http.StatusOK, Msg: "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/show", func(r chi.Router) {
		r.Get("/flow", s.handleFlow)
		r.Get("/report", s.handleReport)
		if opts.Dev && s.sessions != nil && s.raw != nil {
			r.Get("/qryImportantData", s.handleRaw(s.raw.RawImportantData))
			r.Get("/userFluxPackage", s.handleRaw(s.raw.RawFluxPackage))
		}
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	outcome, ok := s.query(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Response{Code: http.StatusOK, Data: outcome.Summary})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	outcome, ok := s.query(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(outcome.Report))
}

// query runs the pipeline for the request's credential and writes an error
// response when it did not produce a summary.
func (s *Server) query(w http.ResponseWriter, r *http.Request) (models.AccountOutcome, bool) {
	cred, ok := credential(w, r)
	if !ok {
		return models.AccountOutcome{}, false
	}

	outcome := s.processor.Process(r.Context(), cred)
	if outcome.Status != models.OutcomeOK || outcome.Summary == nil {
		status, msg := statusFor(outcome.Status)
		writeError(w, status, msg)
		return outcome, false
	}
	return outcome, true
}

func (s *Server) handleRaw(fetch func(context.Context, models.SessionState) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, ok := credential(w, r)
		if !ok {
			return
		}

		sess, err := s.sessions.Open(r.Context(), cred)
		if err != nil {
			status, msg := statusFor(services.Classify(err))
			writeError(w, status, msg)
			return
		}
		defer func() {
			if err := sess.Close(context.WithoutCancel(r.Context())); err != nil {
				logger.Error("failed to persist session state", "error", err)
			}
		}()

		raw, err := fetch(r.Context(), sess.State())
		if err != nil {
			logger.Warn("raw query failed", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "获取数据失败")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

func credential(w http.ResponseWriter, r *http.Request) (models.Credential, bool) {
	q := r.URL.Query()
	cred := models.Credential{
		Phone:       q.Get("username"),
		Password:    q.Get("password"),
		FluxPackage: q.Get("flux") != "false",
	}
	if !cred.Valid() {
		writeError(w, http.StatusBadRequest, "username和password参数不能为空")
		return cred, false
	}
	return cred, true
}

// statusFor maps an outcome to the response code and message.
func statusFor(status models.OutcomeStatus) (int, string) {
	switch status {
	case models.OutcomeInvalid:
		return http.StatusBadRequest, "username格式错误"
	case models.OutcomeThrottled:
		return http.StatusForbidden, "登录频率限制，请稍后再试"
	case models.OutcomeAuthFailed:
		return http.StatusForbidden, "登录失败"
	default:
		return http.StatusInternalServerError, "获取数据失败"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Code: status, Msg: msg})
}
