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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/collector"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/events"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/server"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/watch"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/probe"
)

const (
	defaultListenAddr      = "0.0.0.0:9676"
	defaultPath            = "/api/v1/precheck"
	defaultInterval        = 30 * time.Second
	defaultProbeTimeout    = time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultLogLevel        = "info"
	defaultFormat          = formatTable
	defaultConcurrency     = 4
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var errPrecheckFailed = errors.New("precheck failed")

type configLoader func(interface{}) error

type proberFactory func(time.Duration) (linkProber, error)

type serverFactory func(server.Config, server.ReportSource, server.LinkController, *slog.Logger, ...prometheus.Collector) serverRunner

type serverRunner interface {
	Run(context.Context) error
}

type linkProber interface {
	Links(ctx context.Context) ([]probe.LinkFacts, error)
	Close() error
}

type config struct {
	EventsPath      string        `yaml:"events" env:"GPU_PRECHECK_EVENTS"`
	Watch           bool          `yaml:"watch" env:"GPU_PRECHECK_WATCH"`
	Probe           bool          `yaml:"probe" env:"GPU_PRECHECK_PROBE"`
	ListenAddr      string        `yaml:"listenAddr" env:"GPU_PRECHECK_ADDR"`
	Path            string        `yaml:"path" env:"GPU_PRECHECK_PATH"`
	Interval        time.Duration `yaml:"interval" env:"GPU_PRECHECK_INTERVAL"`
	ProbeTimeout    time.Duration `yaml:"probeTimeout" env:"GPU_PRECHECK_PROBE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"GPU_PRECHECK_SHUTDOWN_TIMEOUT"`
	Concurrency     int           `yaml:"concurrency" env:"GPU_PRECHECK_CONCURRENCY"`
	NodeName        string        `yaml:"nodeName" env:"GPU_PRECHECK_NODE_NAME"`
	Format          string        `yaml:"format" env:"GPU_PRECHECK_FORMAT"`
	LogLevel        string        `yaml:"logLevel" env:"GPU_PRECHECK_LOG_LEVEL" env-default:"info"`
}

func loadConfig(loader configLoader) (config, error) {
	cfg := config{
		ListenAddr:      defaultListenAddr,
		Path:            defaultPath,
		Interval:        defaultInterval,
		ProbeTimeout:    defaultProbeTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		Concurrency:     defaultConcurrency,
		Format:          defaultFormat,
		LogLevel:        defaultLogLevel,
	}
	if loader == nil {
		loader = func(interface{}) error { return nil }
	}
	if err := loader(&cfg); err != nil {
		return config{}, fmt.Errorf("read configuration: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// normalize restores defaults for zero values and validates the rest.
// It runs again after command line flags are applied.
func (c *config) normalize() error {
	if c.ListenAddr == "" {
		return errors.New("listen address must be set")
	}
	if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("HTTP path must start with /, got %q", c.Path)
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "":
		c.Format = defaultFormat
	case formatTable, formatJSON:
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return nil
}

// app holds the collaborators shared by one-shot and serve modes.
type app struct {
	log      *slog.Logger
	cfg      config
	poller   *poller.Poller
	registry *linkdown.Registry
	proberFn proberFactory
}

func newApp(log *slog.Logger, cfg config, proberFn proberFactory) *app {
	registry := linkdown.NewRegistry()
	return &app{
		log:      log,
		cfg:      cfg,
		poller:   poller.New(log, registry, poller.WithConcurrency(cfg.Concurrency)),
		registry: registry,
		proberFn: proberFn,
	}
}

// openProber initializes the link prober. A backend initialization failure is
// returned as a result code so the report can carry it.
func (a *app) openProber() (linkProber, *int) {
	if !a.cfg.Probe || a.proberFn == nil {
		return nil, nil
	}
	prober, err := a.proberFn(a.cfg.ProbeTimeout)
	if err == nil {
		return prober, nil
	}
	a.log.Warn("link probe unavailable", slog.String("error", err.Error()))
	var initErr *probe.InitError
	if errors.As(err, &initErr) {
		code := int(initErr.Result)
		return nil, &code
	}
	return nil, nil
}

func (a *app) poll(ctx context.Context, prober linkProber, initCode *int) (*poller.Report, error) {
	file := &events.File{}
	if a.cfg.EventsPath != "" {
		loaded, err := events.Load(a.cfg.EventsPath)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	if file.BackendInit == nil && initCode != nil {
		file.BackendInit = initCode
	}

	var links []probe.LinkFacts
	if prober != nil {
		facts, err := prober.Links(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.log.Warn("link probe failed", slog.String("error", err.Error()))
		}
		for _, f := range facts {
			for _, warn := range f.Warnings {
				a.log.Warn("partial link data",
					slog.String("device", f.Address),
					slog.String("warning", warn),
				)
			}
		}
		links = facts
	}
	return a.poller.Poll(ctx, file, links)
}

// runOnce polls a single time and writes the report to out.
func (a *app) runOnce(ctx context.Context, out io.Writer) error {
	prober, initCode := a.openProber()
	if prober != nil {
		defer a.closeProber(prober)
	}

	report, err := a.poll(ctx, prober, initCode)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if err := render(out, a.cfg.Format, report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if !report.Passed() {
		return errPrecheckFailed
	}
	return nil
}

// serve polls on an interval and exposes the latest report over HTTP until ctx is done.
func (a *app) serve(ctx context.Context, serverFn serverFactory) error {
	holder := newReportHolder()
	var constLabels prometheus.Labels
	if a.cfg.NodeName != "" {
		constLabels = prometheus.Labels{"node": a.cfg.NodeName}
	}
	srv := serverFn(server.Config{
		ListenAddr:      a.cfg.ListenAddr,
		Path:            a.cfg.Path,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
	}, holder, a.registry, a.log, collector.New(holder, a.log, constLabels))
	if srv == nil {
		return errors.New("server factory returned nil")
	}

	prober, initCode := a.openProber()
	if prober != nil {
		defer a.closeProber(prober)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()

		var changes <-chan struct{}
		if a.cfg.Watch && a.cfg.EventsPath != "" {
			ch, err := watch.Changes(gctx, a.log, a.cfg.EventsPath)
			if err != nil {
				a.log.Warn("event file watch disabled", slog.String("error", err.Error()))
			} else {
				changes = ch
			}
		}

		for {
			start := time.Now()
			report, err := a.poll(gctx, prober, initCode)
			server.ObservePoll(err, time.Since(start))
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				a.log.Error("poll failed", slog.String("error", err.Error()))
				holder.setError(err)
			} else {
				holder.set(report)
			}

			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			case <-changes:
				a.log.Debug("event file changed", slog.String("path", a.cfg.EventsPath))
			}
		}
	})
	return g.Wait()
}

func (a *app) closeProber(p linkProber) {
	if err := p.Close(); err != nil {
		a.log.Warn("shutdown link probe", slog.String("error", err.Error()))
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", level)
	}
}
