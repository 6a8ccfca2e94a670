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

// Package collector exports the latest precheck report as prometheus metrics.
package collector

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
)

// Source returns the latest report, or nil before the first poll.
type Source interface {
	Latest() *poller.Report
}

// Collector exposes precheck metrics.
type Collector struct {
	source  Source
	log     *slog.Logger
	metrics map[string]MetricInfo
}

// New constructs a collector. constLabels are attached to every metric.
func New(source Source, log *slog.Logger, constLabels prometheus.Labels) *Collector {
	return &Collector{
		source:  source,
		log:     log.With(slog.String("collector", "precheck")),
		metrics: newMetrics(constLabels),
	}
}

// Register registers the collector in the registry.
func (c *Collector) Register(reg prometheus.Registerer) {
	reg.MustRegister(c)
}

// Describe describes all metrics.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.Desc
	}
}

// Collect collects all metrics.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	report := c.source.Latest()
	if report == nil {
		return
	}

	s := newScraper(ch, c.metrics, c.log)
	if report.BackendInit != nil {
		s.ReportBackendInit(report.BackendInit)
	}
	for i := range report.Components {
		s.ReportComponent(&report.Components[i])
	}
	for i := range report.Links {
		s.ReportLink(&report.Links[i])
	}
}
