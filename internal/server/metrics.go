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

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpu_precheck",
		Name:      "api_requests_total",
		Help:      "Total API requests grouped by handler and status.",
	}, []string{"handler", "status"})

	pollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpu_precheck",
		Name:      "polls_total",
		Help:      "Total precheck polls grouped by status.",
	}, []string{"status"})

	pollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gpu_precheck",
		Name:      "poll_duration_seconds",
		Help:      "Duration of precheck polls.",
		Buckets:   prometheus.DefBuckets,
	})
)

// ObservePoll records the outcome of a single poll.
func ObservePoll(err error, took time.Duration) {
	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		return
	}
	pollsTotal.WithLabelValues("ok").Inc()
	pollDuration.Observe(took.Seconds())
}
