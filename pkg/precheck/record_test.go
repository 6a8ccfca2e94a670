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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommitKeepsFirstFailure(t *testing.T) {
	rec := NewRecord()
	require.True(t, rec.Passed())

	require.True(t, Commit(&rec, StatusFail, CategoryHardware, SeverityCritical, "T1"))
	require.Equal(t, Record{Status: StatusFail, Category: CategoryHardware, Severity: SeverityCritical, Time: "T1"}, rec)

	require.False(t, Commit(&rec, StatusFail, CategoryKernelModeDriver, SeverityLow, "T2"))
	require.Equal(t, Record{Status: StatusFail, Category: CategoryHardware, Severity: SeverityCritical, Time: "T1"}, rec)
}

func TestCommitIsIdempotentAfterLatch(t *testing.T) {
	rec := NewRecord()
	Commit(&rec, "Warning", CategoryUserModeDriver, SeverityMedium, "first")
	latched := rec

	attempts := []struct {
		status   string
		category ErrorCategory
		severity ErrorSeverity
	}{
		{StatusPass, CategoryNone, SeverityNone},
		{StatusFail, CategoryHardware, SeverityCritical},
		{"Warning", ClassifyCategory(77), ClassifySeverity(99)},
	}
	for i, a := range attempts {
		require.False(t, Commit(&rec, a.status, a.category, a.severity, "later"), "attempt %d", i)
		require.Equal(t, latched, rec, "attempt %d", i)
	}
}

func TestCommitNilRecord(t *testing.T) {
	require.False(t, Commit(nil, StatusFail, CategoryHardware, SeverityCritical, "T1"))
}

func TestFormatTime(t *testing.T) {
	require.Empty(t, FormatTime(time.Time{}))
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	require.Equal(t, "2025-03-04 05:06:07", FormatTime(ts))
}

func TestParseTime(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-04 09:00:00", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)},
		{"2025-03-04T09:00:00+02:00", time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC)},
		{"Mar  4 09:30:00", time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)},
		{"Mar  5 09:30:00", time.Date(2025, 3, 5, 9, 30, 0, 0, time.UTC)},
		{"Oct  2 10:00:00", time.Date(2024, 10, 2, 10, 0, 0, 0, time.UTC)},
		{"Sep 30 10:00:00", time.Date(2024, 9, 30, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in, now)
		require.True(t, ok, tc.in)
		require.True(t, tc.want.Equal(got), "%s: got %s want %s", tc.in, got, tc.want)
	}

	_, ok := ParseTime("yesterday", now)
	require.False(t, ok)
	_, ok = ParseTime("", now)
	require.False(t, ok)
}

func TestCatalogLookup(t *testing.T) {
	et, ok := LookupErrorType(14)
	require.True(t, ok)
	require.Equal(t, CategoryUserModeDriver, et.Category)
	require.Equal(t, SeverityHigh, et.Severity)

	f := et.Finding("T")
	require.Equal(t, StatusFail, f.Status)
	require.Equal(t, "T", f.Time)

	_, ok = LookupErrorType(0)
	require.False(t, ok)

	all := ErrorTypes()
	require.Len(t, all, 14)
	for i, et := range all {
		require.Equal(t, i+1, et.ID)
		require.True(t, et.Category.IsKnown())
		require.True(t, et.Severity.AtLeast(SeverityHigh))
	}
	all[0].Name = "mutated"
	first, _ := LookupErrorType(1)
	require.NotEqual(t, "mutated", first.Name)
}
