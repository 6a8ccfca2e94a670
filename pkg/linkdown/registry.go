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

package linkdown

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrUnsupportedDevice = errors.New("link downgrade is not supported by the device model")
	ErrNotAvailable      = errors.New("link downgrade is not available on the device")
	ErrInvalidState      = errors.New("invalid link downgrade state")
)

// Device is a registered device together with its link downgrade configuration.
type Device struct {
	ID        string `json:"id"`
	Model     string `json:"model,omitempty"`
	Supported bool   `json:"supported"`
	Config    Config `json:"config"`
}

// Registry validates link downgrade requests per device before they reach the Config setters.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds a device or replaces the facts of an already registered one.
func (r *Registry) Register(id, model string, supported bool, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[id] = &Device{ID: id, Model: model, Supported: supported, Config: cfg}
}

// Observe merges freshly probed facts into the registry. A device with a pending
// transition keeps its requested state and action; only the capability flag is refreshed.
func (r *Registry) Observe(id, model string, supported bool, observed Config) Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.devices[id]
	if !ok {
		dev = &Device{ID: id}
		r.devices[id] = dev
	}
	dev.Model = model
	dev.Supported = supported
	if ok && dev.Config.Pending() {
		dev.Config.SetAvailable(observed.Available)
		return dev.Config
	}
	dev.Config = observed
	return dev.Config
}

// Prune drops devices missing from seen and returns their ids in order.
// Devices with a pending transition stay until the request is applied.
func (r *Registry) Prune(seen []string) []string {
	keep := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		keep[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, dev := range r.devices {
		if _, ok := keep[id]; ok || dev.Config.Pending() {
			continue
		}
		delete(r.devices, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed
}

// Get returns the current configuration of a device.
func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, err := r.lookup(id)
	if err != nil {
		return NewConfig(), err
	}
	return dev.Config, nil
}

// Request records a new target state and the reset tier needed to realize it.
func (r *Registry) Request(id string, state State, required Action) (Config, error) {
	if state != StateEnabled && state != StateDisabled {
		return NewConfig(), fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.lookup(id)
	if err != nil {
		return NewConfig(), err
	}
	if !dev.Config.Available {
		return dev.Config, fmt.Errorf("device %s: %w", id, ErrNotAvailable)
	}
	dev.Config.SetCurrent(state)
	dev.Config.SetAction(required)
	return dev.Config, nil
}

// Apply marks the pending transition of a device as realized by the remediation executor.
func (r *Registry) Apply(id string) (Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.lookup(id)
	if err != nil {
		return NewConfig(), err
	}
	dev.Config.Applied()
	return dev.Config, nil
}

// Devices returns every registered device ordered by id.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, *dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) lookup(id string) (*Device, error) {
	dev, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", id, ErrDeviceNotFound)
	}
	if !dev.Supported {
		return nil, fmt.Errorf("device %s (%s): %w", id, dev.Model, ErrUnsupportedDevice)
	}
	return dev, nil
}
