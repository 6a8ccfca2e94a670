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

// Package poller turns classified events and probed link facts into a precheck report.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/events"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/probe"
)

const defaultConcurrency = 4

// Option configures a Poller.
type Option func(p *Poller)

// WithClock overrides the clock used to stamp events without a time.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSessionIDs overrides the session id generator.
func WithSessionIDs(newID func() string) Option {
	return func(p *Poller) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// WithConcurrency limits how many devices are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Poller builds reports. Each device is processed by its own goroutine which
// exclusively owns that device's aggregator and link configuration.
type Poller struct {
	log         *slog.Logger
	registry    *linkdown.Registry
	now         func() time.Time
	newID       func() string
	concurrency int
}

// New constructs a Poller that keeps link downgrade state in registry.
func New(log *slog.Logger, registry *linkdown.Registry, opts ...Option) *Poller {
	if registry == nil {
		registry = linkdown.NewRegistry()
	}
	p := &Poller{
		log:         log,
		registry:    registry,
		now:         time.Now,
		newID:       uuid.NewString,
		concurrency: defaultConcurrency,
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// Registry returns the link downgrade registry the poller updates.
func (p *Poller) Registry() *linkdown.Registry { return p.registry }

type deviceInput struct {
	address   string
	model     string
	supported bool
	link      linkdown.Config
	events    []events.Event
	// seq is the position of the first event in the whole event file.
	seq int
}

type deviceResult struct {
	input    deviceInput
	records  []precheck.ComponentRecord
	failures []observation
}

// observation is a latched failure together with its place in time and in the file.
type observation struct {
	id      precheck.ComponentID
	finding precheck.Finding
	at      time.Time
	timed   bool
	seq     int
}

// Poll processes the event file and probed links into a report.
func (p *Poller) Poll(ctx context.Context, file *events.File, links []probe.LinkFacts) (*Report, error) {
	if file == nil {
		file = &events.File{}
	}
	sessionID := p.newID()
	log := p.log.With(slog.String("session", sessionID))

	host := precheck.NewAggregator()
	host.Track(precheck.DriverID)
	for _, id := range file.Host.CPUs {
		host.Track(precheck.CPU(id))
	}
	var hostFailures []observation
	for i, ev := range file.Host.Events {
		if obs, ok := p.commit(host, ev, "", i); ok {
			hostFailures = append(hostFailures, obs)
		}
	}

	inputs := deviceInputs(file, links, len(file.Host.Events))
	results := make([]deviceResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range inputs {
		g.Go(func() error {
			res, err := p.processDevice(gctx, inputs[i])
			if err != nil {
				return fmt.Errorf("device %s: %w", inputs[i].address, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeRecords(host.Records(), hostFailures, results)
	report := &Report{
		SessionID:   sessionID,
		GeneratedAt: p.now(),
		Components:  make([]Component, 0, len(merged)),
	}
	if file.BackendInit != nil {
		report.BackendInit = newBackendInit(*file.BackendInit)
	}
	for _, cr := range merged {
		report.Components = append(report.Components, newComponent(cr))
	}

	seen := make([]string, 0, len(results))
	for _, res := range results {
		in := res.input
		seen = append(seen, in.address)
		cfg := p.registry.Observe(in.address, in.model, in.supported, in.link)
		if !cfg.Consistent() {
			log.Warn("inconsistent link downgrade facts",
				slog.String("device", in.address),
				slog.String("current", cfg.Current.String()),
				slog.Bool("available", cfg.Available),
			)
		}
	}
	if removed := p.registry.Prune(seen); len(removed) > 0 {
		log.Info("devices no longer reported", slog.Any("devices", removed))
	}
	for _, dev := range p.registry.Devices() {
		report.Links = append(report.Links, newLink(dev))
	}

	log.Info("precheck poll finished",
		slog.Int("components", len(report.Components)),
		slog.Int("devices", len(inputs)),
		slog.Bool("passed", report.Passed()),
	)
	return report, nil
}

func (p *Poller) processDevice(ctx context.Context, in deviceInput) (deviceResult, error) {
	agg := precheck.NewAggregator()
	agg.Track(precheck.GPU(in.address))
	res := deviceResult{input: in}
	for i, ev := range in.events {
		if err := ctx.Err(); err != nil {
			return deviceResult{}, err
		}
		if obs, ok := p.commit(agg, ev, in.address, in.seq+i); ok {
			res.failures = append(res.failures, obs)
		}
	}
	res.records = agg.Records()
	return res, nil
}

// commit latches the event into agg. Events without a time are stamped with
// the poll clock but order after every event that carried its own time.
func (p *Poller) commit(agg *precheck.Aggregator, ev events.Event, defaultKey string, seq int) (observation, bool) {
	now := p.now()
	f := ev.Finding()
	obs := observation{seq: seq}
	if f.Time == "" {
		f.Time = precheck.FormatTime(now)
	} else {
		obs.at, obs.timed = precheck.ParseTime(f.Time, now)
	}
	id := ev.ComponentID(defaultKey)
	if !agg.Commit(id, f) {
		return observation{}, false
	}
	p.log.Debug("component failure latched",
		slog.String("component", id.String()),
		slog.String("category", f.Category.String()),
		slog.String("severity", f.Severity.String()),
	)
	obs.id = id
	obs.finding = f
	return obs, true
}

func deviceInputs(file *events.File, links []probe.LinkFacts, seq int) []deviceInput {
	byAddr := make(map[string]probe.LinkFacts, len(links))
	for _, l := range links {
		byAddr[l.Address] = l
	}

	inputs := make([]deviceInput, 0, len(file.Devices)+len(links))
	seen := make(map[string]struct{}, len(file.Devices))
	for _, dev := range file.Devices {
		in := deviceInput{
			address: dev.Address,
			model:   dev.Model,
			link:    linkdown.NewConfig(),
			events:  dev.Events,
			seq:     seq,
		}
		seq += len(dev.Events)
		switch {
		case dev.LinkDowngrade != nil:
			in.supported = dev.LinkDowngrade.Supported
			in.link = dev.LinkDowngrade.Config()
		case hasFacts(byAddr, dev.Address):
			in.supported = true
			in.link = byAddr[dev.Address].Config()
		}
		inputs = append(inputs, in)
		seen[dev.Address] = struct{}{}
	}
	for _, l := range links {
		if _, ok := seen[l.Address]; ok {
			continue
		}
		inputs = append(inputs, deviceInput{
			address:   l.Address,
			model:     l.Name,
			supported: true,
			link:      l.Config(),
		})
	}
	return inputs
}

func hasFacts(m map[string]probe.LinkFacts, addr string) bool {
	_, ok := m[addr]
	return ok
}

// mergeRecords folds per-device records into one set. Components reported by
// several owners keep the earliest failure. Failures with a parseable time are
// ordered by that time, the rest follow in event file order.
func mergeRecords(host []precheck.ComponentRecord, hostFailures []observation, devices []deviceResult) []precheck.ComponentRecord {
	merged := precheck.NewAggregator()
	failures := append([]observation(nil), hostFailures...)
	for _, cr := range host {
		merged.Track(cr.ID)
	}
	for _, res := range devices {
		for _, cr := range res.records {
			merged.Track(cr.ID)
		}
		failures = append(failures, res.failures...)
	}

	sort.SliceStable(failures, func(i, j int) bool {
		return before(failures[i], failures[j])
	})
	for _, obs := range failures {
		merged.Commit(obs.id, obs.finding)
	}
	return merged.Records()
}

func before(a, b observation) bool {
	if a.timed != b.timed {
		return a.timed
	}
	if a.timed && !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.seq < b.seq
}
