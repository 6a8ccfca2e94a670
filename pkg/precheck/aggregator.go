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
	"fmt"
	"sort"
)

// ComponentID identifies a component instance within a diagnostic session.
// Key is the PCI address for GPUs, the physical id for CPUs and empty for the driver.
type ComponentID struct {
	Kind ComponentKind `json:"kind"`
	Key  string        `json:"key,omitempty"`
}

// DriverID is the identity of the single host driver component.
var DriverID = ComponentID{Kind: ComponentDriver}

// GPU returns the identity of the GPU at the given PCI address.
func GPU(address string) ComponentID {
	return ComponentID{Kind: ComponentGPU, Key: address}
}

// CPU returns the identity of the CPU with the given physical id.
func CPU(physicalID int) ComponentID {
	return ComponentID{Kind: ComponentCPU, Key: fmt.Sprintf("%d", physicalID)}
}

func (id ComponentID) String() string {
	if id.Key == "" {
		return id.Kind.String()
	}
	return id.Kind.String() + " " + id.Key
}

// Finding is an already classified fault reported by a producer.
type Finding struct {
	Status   string
	Category ErrorCategory
	Severity ErrorSeverity
	Time     string
}

// ComponentRecord pairs a record with the component it belongs to.
type ComponentRecord struct {
	ID     ComponentID
	Record Record
}

// Aggregator holds the latest committed record of every component seen in a session.
// It is not safe for concurrent use; each session is owned by a single goroutine.
type Aggregator struct {
	records map[ComponentID]*Record
}

// NewAggregator constructs an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{records: make(map[ComponentID]*Record)}
}

// Track registers id in the passing state unless it is already known.
func (a *Aggregator) Track(id ComponentID) {
	a.record(id)
}

// Commit applies f to the record of id, creating the record on first use.
// It reports whether the record changed.
func (a *Aggregator) Commit(id ComponentID, f Finding) bool {
	return Commit(a.record(id), f.Status, f.Category, f.Severity, f.Time)
}

// Lookup returns a copy of the record of id.
func (a *Aggregator) Lookup(id ComponentID) (Record, bool) {
	rec, ok := a.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked components.
func (a *Aggregator) Len() int { return len(a.records) }

// Records returns every tracked component: driver first, then CPUs, then GPUs, each by key.
func (a *Aggregator) Records() []ComponentRecord {
	out := make([]ComponentRecord, 0, len(a.records))
	for id, rec := range a.records {
		out = append(out, ComponentRecord{ID: id, Record: *rec})
	}
	SortRecords(out)
	return out
}

// Failed returns the components whose record left the passing state.
func (a *Aggregator) Failed() []ComponentRecord {
	var out []ComponentRecord
	for _, cr := range a.Records() {
		if !cr.Record.Passed() {
			out = append(out, cr)
		}
	}
	return out
}

// Passed reports whether every tracked component still passes.
func (a *Aggregator) Passed() bool {
	for _, rec := range a.records {
		if !rec.Passed() {
			return false
		}
	}
	return true
}

func (a *Aggregator) record(id ComponentID) *Record {
	rec, ok := a.records[id]
	if !ok {
		r := NewRecord()
		rec = &r
		a.records[id] = rec
	}
	return rec
}

// SortRecords orders records the way reports list them.
func SortRecords(records []ComponentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		oi, oj := kindOrder(records[i].ID.Kind), kindOrder(records[j].ID.Kind)
		if oi != oj {
			return oi < oj
		}
		if records[i].ID.Kind != records[j].ID.Kind {
			return records[i].ID.Kind < records[j].ID.Kind
		}
		return records[i].ID.Key < records[j].ID.Key
	})
}

func kindOrder(k ComponentKind) int {
	switch k {
	case ComponentDriver:
		return 0
	case ComponentCPU:
		return 1
	case ComponentGPU:
		return 2
	case ComponentNone:
		return 3
	default:
		return 4
	}
}
