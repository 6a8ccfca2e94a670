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
	"sync"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
)

// reportHolder shares the latest report between the poll loop, the HTTP
// handlers and the metrics collector.
type reportHolder struct {
	mu      sync.RWMutex
	latest  *poller.Report
	lastErr error
}

func newReportHolder() *reportHolder {
	return &reportHolder{}
}

// Latest returns the last successful report. A failed poll does not hide it.
func (h *reportHolder) Latest() *poller.Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

func (h *reportHolder) LastError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}

func (h *reportHolder) set(report *poller.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = report
	h.lastErr = nil
}

func (h *reportHolder) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = err
}
