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

// Package events decodes already classified precheck events produced by the telemetry layer.
package events

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
)

// Event is a single classified fault.
type Event struct {
	Component *int   `yaml:"component,omitempty" json:"component,omitempty"`
	Key       string `yaml:"key,omitempty" json:"key,omitempty"`
	Status    string `yaml:"status,omitempty" json:"status,omitempty"`
	Category  int    `yaml:"category,omitempty" json:"category,omitempty"`
	Severity  int    `yaml:"severity,omitempty" json:"severity,omitempty"`
	ErrorID   int    `yaml:"errorId,omitempty" json:"errorId,omitempty"`
	Time      string `yaml:"time,omitempty" json:"time,omitempty"`
}

// ComponentID returns the component the event is about. Events without a key
// inherit defaultKey, which is the device address for device-scoped events.
// Events without a component are about the GPU itself.
func (e Event) ComponentID(defaultKey string) precheck.ComponentID {
	kind := precheck.ComponentGPU
	if e.Component != nil {
		kind = precheck.ClassifyComponent(*e.Component)
	}
	key := strings.TrimSpace(e.Key)
	if key == "" && kind != precheck.ComponentDriver {
		key = defaultKey
	}
	return precheck.ComponentID{Kind: kind, Key: key}
}

// Finding converts the event into a finding. A known ErrorID takes its category
// and severity from the error catalog.
func (e Event) Finding() precheck.Finding {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		status = precheck.StatusFail
	}
	if et, ok := precheck.LookupErrorType(e.ErrorID); ok {
		f := et.Finding(e.Time)
		f.Status = status
		return f
	}
	return precheck.Finding{
		Status:   status,
		Category: precheck.ClassifyCategory(e.Category),
		Severity: precheck.ClassifySeverity(e.Severity),
		Time:     e.Time,
	}
}

// LinkDowngrade holds the link downgrade facts of a device.
type LinkDowngrade struct {
	Supported bool `yaml:"supported" json:"supported"`
	Available bool `yaml:"available" json:"available"`
	Current   int  `yaml:"current" json:"current"`
	Action    int  `yaml:"action" json:"action"`
}

// Config returns the controller triple described by the facts.
func (l LinkDowngrade) Config() linkdown.Config {
	cfg := linkdown.NewConfig()
	cfg.SetAvailable(l.Available)
	cfg.SetCurrent(linkdown.State(l.Current))
	cfg.SetAction(linkdown.Action(l.Action))
	return cfg
}

// Device groups the events of a single accelerator.
type Device struct {
	Address       string         `yaml:"address" json:"address"`
	Model         string         `yaml:"model,omitempty" json:"model,omitempty"`
	LinkDowngrade *LinkDowngrade `yaml:"linkDowngrade,omitempty" json:"linkDowngrade,omitempty"`
	Events        []Event        `yaml:"events,omitempty" json:"events,omitempty"`
}

// Host groups events of host-wide components such as the driver and CPUs.
type Host struct {
	CPUs   []int   `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Events []Event `yaml:"events,omitempty" json:"events,omitempty"`
}

// File is the content of an event file.
type File struct {
	BackendInit *int     `yaml:"backendInit,omitempty" json:"backendInit,omitempty"`
	Host        Host     `yaml:"host" json:"host"`
	Devices     []Device `yaml:"devices" json:"devices"`
}

// Decode reads an event file. An empty document yields an empty File.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads and decodes the event file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

func (f *File) validate() error {
	for i, ev := range f.Host.Events {
		if ev.Component == nil {
			return fmt.Errorf("host event %d: component must be set", i)
		}
	}
	seen := make(map[string]struct{}, len(f.Devices))
	for i, dev := range f.Devices {
		addr := strings.TrimSpace(dev.Address)
		if addr == "" {
			return fmt.Errorf("device %d: address must be set", i)
		}
		if _, ok := seen[addr]; ok {
			return fmt.Errorf("device %s: duplicate address", addr)
		}
		seen[addr] = struct{}{}
	}
	return nil
}
