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

// Package probe reads PCIe link facts of accelerators from the driver stack.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/initresult"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
)

const defaultTimeout = time.Second

// nvmlResultBase offsets NVML return codes that have no dedicated backend result.
const nvmlResultBase = 1000

var collect = queryNVML

// LinkFacts is the PCIe link of a single device as reported by the driver.
type LinkFacts struct {
	Address           string   `json:"address"`
	Name              string   `json:"name,omitempty"`
	CurrentWidth      int      `json:"currentWidth"`
	MaxWidth          int      `json:"maxWidth"`
	CurrentGeneration int      `json:"currentGeneration"`
	MaxGeneration     int      `json:"maxGeneration"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Available reports whether the driver exposes the link limits of the device.
func (f LinkFacts) Available() bool {
	return f.MaxWidth > 0 && f.MaxGeneration > 0
}

// State returns Enabled when the link runs below its maximum width or generation.
func (f LinkFacts) State() linkdown.State {
	if !f.Available() || f.CurrentWidth <= 0 || f.CurrentGeneration <= 0 {
		return linkdown.StateUnavailable
	}
	if f.CurrentWidth < f.MaxWidth || f.CurrentGeneration < f.MaxGeneration {
		return linkdown.StateEnabled
	}
	return linkdown.StateDisabled
}

// Config converts the facts into a link downgrade configuration.
func (f LinkFacts) Config() linkdown.Config {
	state := f.State()
	return linkdown.NewConfigWith(state != linkdown.StateUnavailable, state)
}

// InitError is returned when the backend fails to initialize.
type InitError struct {
	Result initresult.Result
	Detail string
}

func (e *InitError) Error() string {
	if e.Detail == "" {
		return e.Result.String()
	}
	return fmt.Sprintf("%s: %s", e.Result, e.Detail)
}

// Option configures a Client.
type Option func(c *Client)

// Client queries link facts from NVML.
type Client struct {
	Timeout time.Duration
}

// NewClient constructs a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{Timeout: defaultTimeout}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

// WithTimeout overrides the NVML call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// Init initializes NVML bindings. Failures are *InitError.
func (c *Client) Init() error { return initNVML() }

// Close releases NVML resources.
func (c *Client) Close() error { return shutdownNVML() }

// Links returns the link facts of every device or propagates context cancellation.
func (c *Client) Links(ctx context.Context) ([]LinkFacts, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	resultCh := make(chan []LinkFacts, 1)
	errCh := make(chan error, 1)
	go func() {
		facts, err := collect()
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- facts
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case facts := <-resultCh:
		return facts, nil
	}
}

type warningCollector []string

func (w *warningCollector) addf(format string, args ...interface{}) {
	*w = append(*w, fmt.Sprintf(format, args...))
}
