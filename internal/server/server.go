// Copyright 2025 Flant JSC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the precheck report and link downgrade controls over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
)

var defaultShutdownTimeout = 5 * time.Second

const (
	defaultReportPath = "/api/v1/precheck"
	linksPath         = "/api/v1/links"
)

// ReportSource returns the latest precheck report.
type ReportSource interface {
	Latest() *poller.Report
}

// lastErrorSource is implemented by report sources that remember the last poll failure.
type lastErrorSource interface {
	LastError() error
}

// LinkController reads and changes link downgrade configuration.
type LinkController interface {
	Get(id string) (linkdown.Config, error)
	Request(id string, state linkdown.State, required linkdown.Action) (linkdown.Config, error)
	Apply(id string) (linkdown.Config, error)
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(context.Context) error
}

// Config controls the HTTP server behaviour.
type Config struct {
	ListenAddr      string
	Path            string
	ShutdownTimeout time.Duration
}

// Server exposes the latest report, link controls and metrics.
type Server struct {
	cfg       Config
	reports   ReportSource
	links     LinkController
	logger    *slog.Logger
	httpSrv   httpServer
	factory   func(addr string, handler http.Handler) httpServer
	startedCh chan struct{}
	registry  *prometheus.Registry
}

// New constructs a Server. Extra collectors are served on /metrics.
func New(cfg Config, reports ReportSource, links LinkController, logger *slog.Logger, collectors ...prometheus.Collector) *Server {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	path := cfg.Path
	if path == "" {
		path = defaultReportPath
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(apiRequests, pollsTotal, pollDuration)
	registry.MustRegister(collectors...)

	return &Server{
		cfg: Config{
			ListenAddr:      cfg.ListenAddr,
			Path:            path,
			ShutdownTimeout: timeout,
		},
		reports: reports,
		links:   links,
		logger:  logger,
		factory: func(addr string, handler http.Handler) httpServer {
			return &stdHTTPServer{srv: &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}}
		},
		startedCh: make(chan struct{}),
		registry:  registry,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleReport)
	mux.HandleFunc("GET "+linksPath+"/{device}", s.handleGetLink)
	mux.HandleFunc("PUT "+linksPath+"/{device}", s.handleRequestLink)
	mux.HandleFunc("POST "+linksPath+"/{device}/apply", s.handleApplyLink)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run blocks until the context is cancelled or the HTTP server fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = s.factory(s.cfg.ListenAddr, s.Handler())

	errCh := make(chan error, 1)
	go func() {
		close(s.startedCh)
		s.logger.Info("precheck server started",
			slog.String("addr", s.cfg.ListenAddr),
			slog.String("path", s.cfg.Path),
		)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		apiRequests.WithLabelValues("report", "method_not_allowed").Inc()
		return
	}

	report := s.reports.Latest()
	if report == nil {
		msg := "no report yet"
		if es, ok := s.reports.(lastErrorSource); ok && es.LastError() != nil {
			msg = "poll failed: " + es.LastError().Error()
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
		apiRequests.WithLabelValues("report", "not_ready").Inc()
		return
	}
	s.writeJSON(w, "report", http.StatusOK, report)
}

type linkResponse struct {
	Device string          `json:"device"`
	Config linkdown.Config `json:"config"`
	State  string          `json:"state"`
	Action string          `json:"action"`
}

type linkRequest struct {
	State  string `json:"state"`
	Action string `json:"action"`
}

func newLinkResponse(device string, cfg linkdown.Config) linkResponse {
	return linkResponse{Device: device, Config: cfg, State: cfg.Current.String(), Action: cfg.Action.String()}
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	cfg, err := s.links.Get(device)
	if err != nil {
		s.linkError(w, "link_get", device, err)
		return
	}
	s.writeJSON(w, "link_get", http.StatusOK, newLinkResponse(device, cfg))
}

func (s *Server) handleRequestLink(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")

	var req linkRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		apiRequests.WithLabelValues("link_request", "bad_request").Inc()
		return
	}
	state, ok := linkdown.ParseState(req.State)
	if !ok {
		http.Error(w, "unknown state "+req.State, http.StatusBadRequest)
		apiRequests.WithLabelValues("link_request", "bad_request").Inc()
		return
	}
	action := linkdown.ActionNone
	if req.Action != "" {
		if action, ok = linkdown.ParseAction(req.Action); !ok {
			http.Error(w, "unknown action "+req.Action, http.StatusBadRequest)
			apiRequests.WithLabelValues("link_request", "bad_request").Inc()
			return
		}
	}

	cfg, err := s.links.Request(device, state, action)
	if err != nil {
		s.linkError(w, "link_request", device, err)
		return
	}
	s.logger.Info("link downgrade requested",
		slog.String("device", device),
		slog.String("state", state.String()),
		slog.String("action", action.String()),
	)
	s.writeJSON(w, "link_request", http.StatusOK, newLinkResponse(device, cfg))
}

func (s *Server) handleApplyLink(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	cfg, err := s.links.Apply(device)
	if err != nil {
		s.linkError(w, "link_apply", device, err)
		return
	}
	s.logger.Info("link downgrade applied", slog.String("device", device))
	s.writeJSON(w, "link_apply", http.StatusOK, newLinkResponse(device, cfg))
}

func (s *Server) linkError(w http.ResponseWriter, handler, device string, err error) {
	code, status := http.StatusInternalServerError, "error"
	switch {
	case errors.Is(err, linkdown.ErrDeviceNotFound):
		code, status = http.StatusNotFound, "not_found"
	case errors.Is(err, linkdown.ErrUnsupportedDevice), errors.Is(err, linkdown.ErrNotAvailable):
		code, status = http.StatusConflict, "conflict"
	case errors.Is(err, linkdown.ErrInvalidState):
		code, status = http.StatusBadRequest, "bad_request"
	}
	s.logger.Warn("link downgrade request rejected",
		slog.String("device", device),
		slog.String("error", err.Error()),
	)
	http.Error(w, err.Error(), code)
	apiRequests.WithLabelValues(handler, status).Inc()
}

func (s *Server) writeJSON(w http.ResponseWriter, handler string, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response",
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		apiRequests.WithLabelValues(handler, "error").Inc()
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
	apiRequests.WithLabelValues(handler, "ok").Inc()
}

func (s *Server) shutdown() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("precheck server stopped")
	return nil
}

type stdHTTPServer struct {
	srv *http.Server
}

func (s *stdHTTPServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *stdHTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
