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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/server"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/probe"
)

const (
	exitError  = 1
	exitFailed = 2
)

type options struct {
	configPath string
	serve      bool
	flags      *pflag.FlagSet
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("gpu-precheck", pflag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	fs.BoolVar(&opts.serve, "serve", false, "poll on an interval and serve the report over HTTP")
	fs.String("events", "", "path to the classified event file")
	fs.String("format", defaultFormat, "report format: table or json")
	fs.Bool("probe", false, "read PCIe link facts from NVML")
	fs.Bool("watch", false, "poll again as soon as the event file changes in serve mode")
	fs.String("listen", defaultListenAddr, "HTTP listen address in serve mode")
	fs.Duration("interval", defaultInterval, "poll interval in serve mode")
	fs.String("log-level", defaultLogLevel, "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	opts.flags = fs
	return opts, nil
}

// applyFlags overrides configuration with flags set explicitly on the command line.
func applyFlags(cfg *config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	var err error
	if fs.Changed("events") {
		cfg.EventsPath, err = fs.GetString("events")
	}
	if err == nil && fs.Changed("format") {
		cfg.Format, err = fs.GetString("format")
	}
	if err == nil && fs.Changed("probe") {
		cfg.Probe, err = fs.GetBool("probe")
	}
	if err == nil && fs.Changed("watch") {
		cfg.Watch, err = fs.GetBool("watch")
	}
	if err == nil && fs.Changed("listen") {
		cfg.ListenAddr, err = fs.GetString("listen")
	}
	if err == nil && fs.Changed("interval") {
		cfg.Interval, err = fs.GetDuration("interval")
	}
	if err == nil && fs.Changed("log-level") {
		cfg.LogLevel, err = fs.GetString("log-level")
	}
	if err != nil {
		return err
	}
	return cfg.normalize()
}

func configReader(path string) configLoader {
	if path == "" {
		return func(target interface{}) error { return cleanenv.ReadEnv(target) }
	}
	return func(target interface{}) error { return cleanenv.ReadConfig(path, target) }
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}

	cfg, err := loadConfig(configReader(opts.configPath))
	if err == nil {
		err = applyFlags(&cfg, opts.flags)
	}
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{})).
			Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(exitError)
	}

	logOut := os.Stderr
	if opts.serve {
		logOut = os.Stdout
	}
	log, err := newLogger(logOut, cfg.LogLevel)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{})).
			Error("invalid log level", slog.String("error", err.Error()))
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a := newApp(log, cfg, realProberFactory)
	if opts.serve {
		err = a.serve(ctx, realServerFactory)
	} else {
		err = a.runOnce(ctx, os.Stdout)
	}
	switch {
	case err == nil:
	case errors.Is(err, errPrecheckFailed):
		os.Exit(exitFailed)
	default:
		log.Error("gpu-precheck failed", slog.String("error", err.Error()))
		os.Exit(exitError)
	}
}

func realProberFactory(timeout time.Duration) (linkProber, error) {
	client := probe.NewClient(probe.WithTimeout(timeout))
	if err := client.Init(); err != nil {
		return nil, err
	}
	return client, nil
}

func realServerFactory(cfg server.Config, reports server.ReportSource, links server.LinkController, log *slog.Logger, collectors ...prometheus.Collector) serverRunner {
	return server.New(cfg, reports, links, log, collectors...)
}
