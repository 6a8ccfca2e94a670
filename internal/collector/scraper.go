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

package collector

import (
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
)

type scraper struct {
	ch      chan<- prometheus.Metric
	metrics map[string]MetricInfo
	log     *slog.Logger
}

func newScraper(ch chan<- prometheus.Metric, metrics map[string]MetricInfo, log *slog.Logger) *scraper {
	return &scraper{ch: ch, metrics: metrics, log: log}
}

func (s *scraper) ReportComponent(c *poller.Component) {
	s.update(MetricComponentStatus, boolValue(c.Status != precheck.StatusPass),
		c.Kind, strconv.Itoa(c.KindCode), c.Key, c.Status, c.Category, c.Severity)
}

func (s *scraper) ReportLink(l *poller.Link) {
	s.update(MetricLinkDowngrade, boolValue(l.Pending),
		l.Device, l.Current, l.Action, strconv.FormatBool(l.Available))
}

func (s *scraper) ReportBackendInit(b *poller.BackendInit) {
	s.update(MetricBackendInit, boolValue(b.OK), strconv.Itoa(b.Code))
}

func (s *scraper) update(name string, value float64, labelValues ...string) {
	info := s.metrics[name]
	metric, err := prometheus.NewConstMetric(info.Desc, info.Type, value, labelValues...)
	if err != nil {
		s.log.Warn("failed to create const metric",
			slog.String("metric", name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.ch <- metric
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
