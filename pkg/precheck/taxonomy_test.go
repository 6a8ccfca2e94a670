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
	"math"
	"testing"
)

func TestClassifyComponentLabels(t *testing.T) {
	cases := map[int]string{
		0: "None",
		1: "Driver",
		2: "GPU",
		3: "CPU",
	}
	for raw, want := range cases {
		kind := ClassifyComponent(raw)
		if !kind.IsKnown() {
			t.Fatalf("code %d should be known", raw)
		}
		if got := kind.String(); got != want {
			t.Fatalf("code %d: expected %q, got %q", raw, want, got)
		}
	}
}

func TestClassifyCategoryLabels(t *testing.T) {
	cases := map[int]string{
		0: "None",
		1: "Kernel Mode Driver",
		2: "User Mode Driver",
		4: "Hardware",
	}
	for raw, want := range cases {
		if got := ClassifyCategory(raw).String(); got != want {
			t.Fatalf("code %d: expected %q, got %q", raw, want, got)
		}
	}
}

func TestClassifySeverityLabels(t *testing.T) {
	cases := map[int]string{
		0: "None",
		1: "Low",
		2: "Medium",
		4: "High",
		8: "Critical",
	}
	for raw, want := range cases {
		if got := ClassifySeverity(raw).String(); got != want {
			t.Fatalf("code %d: expected %q, got %q", raw, want, got)
		}
	}
}

func TestUnknownCodesArePreserved(t *testing.T) {
	for _, raw := range []int{-1, 3, 5, 7, 16, 999, math.MaxInt32, math.MinInt32} {
		cat := ClassifyCategory(raw)
		if cat.IsKnown() {
			t.Fatalf("category %d should be unknown", raw)
		}
		if cat.Raw() != raw {
			t.Fatalf("category raw value lost: %d != %d", cat.Raw(), raw)
		}
		if cat.String() != "Unknown" {
			t.Fatalf("unknown category %d rendered as %q", raw, cat.String())
		}

		sev := ClassifySeverity(raw)
		if sev.IsKnown() {
			t.Fatalf("severity %d should be unknown", raw)
		}
		if sev.Raw() != raw {
			t.Fatalf("severity raw value lost: %d != %d", sev.Raw(), raw)
		}
		if sev.String() != "Unknown" {
			t.Fatalf("unknown severity %d rendered as %q", raw, sev.String())
		}
	}

	kind := ClassifyComponent(42)
	if kind.IsKnown() || kind.Raw() != 42 || kind.String() != "Unknown" {
		t.Fatalf("unexpected unknown component: known=%v raw=%d label=%q", kind.IsKnown(), kind.Raw(), kind.String())
	}
}

func TestSeverityOrdering(t *testing.T) {
	ordered := []ErrorSeverity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Fatalf("%s must rank above %s", ordered[i], ordered[i-1])
		}
		if !ordered[i].AtLeast(ordered[i-1]) || ordered[i-1].AtLeast(ordered[i]) {
			t.Fatalf("AtLeast broken between %s and %s", ordered[i], ordered[i-1])
		}
	}
	if ClassifySeverity(3).AtLeast(SeverityNone) {
		t.Fatalf("unknown severity must not compare")
	}
}
