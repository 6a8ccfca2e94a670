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

package precheck

import "time"

const (
	// StatusPass means no fault has been observed for the component yet.
	StatusPass = "Pass"
	// StatusFail is the status producers use for a classified fault.
	StatusFail = "Fail"
)

// TimeLayout is the layout used for record timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Record is the diagnostic outcome of a single component.
// Category, Severity and Time are meaningful only when Status is not StatusPass.
type Record struct {
	Status   string        `json:"status"`
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Time     string        `json:"time,omitempty"`
}

// NewRecord returns a record in the passing state.
func NewRecord() Record {
	return Record{Status: StatusPass}
}

// Passed reports whether no failure has been committed to the record.
func (r Record) Passed() bool {
	return r.Status == StatusPass
}

// Commit writes the failure into rec if rec still passes and reports whether it did.
// Once a record leaves StatusPass it is never overwritten, so the earliest failure
// observed for a component is the one that is reported.
func Commit(rec *Record, status string, category ErrorCategory, severity ErrorSeverity, at string) bool {
	if rec == nil || rec.Status != StatusPass {
		return false
	}
	rec.Status = status
	rec.Category = category
	rec.Severity = severity
	rec.Time = at
	return true
}

// FormatTime renders t the way record timestamps are stored.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

var parseLayouts = []string{TimeLayout, time.RFC3339Nano, time.Stamp}

// ParseTime interprets a producer timestamp relative to now. Timestamps without
// a zone are taken in now's location. Syslog stamps carry no year and resolve to
// the most recent matching instant that is not more than a day after now.
func ParseTime(s string, now time.Time) (time.Time, bool) {
	for _, layout := range parseLayouts {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		if layout == time.Stamp {
			t = t.AddDate(now.Year(), 0, 0)
			if t.Sub(now) > 24*time.Hour {
				t = t.AddDate(-1, 0, 0)
			}
		}
		return t, true
	}
	return time.Time{}, false
}
