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
	"errors"
	"sync"
	"testing"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
)

func TestReportHolderBeforeFirstPoll(t *testing.T) {
	h := newReportHolder()
	if h.Latest() != nil || h.LastError() != nil {
		t.Fatalf("expected empty holder")
	}
}

func TestReportHolderKeepsReportOnError(t *testing.T) {
	h := newReportHolder()
	report := &poller.Report{SessionID: "a"}
	h.set(report)

	h.setError(errors.New("boom"))
	if h.Latest() != report {
		t.Fatalf("failed poll must not hide the last report")
	}
	if h.LastError() == nil {
		t.Fatalf("expected last error")
	}

	h.set(&poller.Report{SessionID: "b"})
	if h.LastError() != nil || h.Latest().SessionID != "b" {
		t.Fatalf("successful poll must replace report and clear error")
	}
}

func TestReportHolderConcurrentAccess(t *testing.T) {
	h := newReportHolder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.set(&poller.Report{})
		}()
		go func() {
			defer wg.Done()
			_ = h.Latest()
		}()
	}
	wg.Wait()
	if h.Latest() == nil {
		t.Fatalf("expected a report")
	}
}
