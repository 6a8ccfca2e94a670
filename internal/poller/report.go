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

package poller

import (
	"time"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/initresult"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
)

// Report is the outcome of a single poll.
type Report struct {
	SessionID   string       `json:"sessionID"`
	GeneratedAt time.Time    `json:"generatedAt"`
	BackendInit *BackendInit `json:"backendInit,omitempty"`
	Components  []Component  `json:"components"`
	Links       []Link       `json:"links"`
}

// Passed reports whether every component passed and the backend initialized.
func (r *Report) Passed() bool {
	if r.BackendInit != nil && !r.BackendInit.OK {
		return false
	}
	for _, c := range r.Components {
		if c.Status != precheck.StatusPass {
			return false
		}
	}
	return true
}

// BackendInit describes the backend initialization result.
type BackendInit struct {
	Code    int    `json:"code"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func newBackendInit(code int) *BackendInit {
	res := initresult.Result(code)
	return &BackendInit{Code: code, OK: res.OK(), Message: initresult.Interpret(code)}
}

// Component is the rendered record of one component. Raw codes are kept next
// to their labels so unknown values stay inspectable.
type Component struct {
	Kind         string `json:"kind"`
	KindCode     int    `json:"kindCode"`
	Key          string `json:"key,omitempty"`
	Status       string `json:"status"`
	Category     string `json:"category,omitempty"`
	CategoryCode int    `json:"categoryCode,omitempty"`
	Severity     string `json:"severity,omitempty"`
	SeverityCode int    `json:"severityCode,omitempty"`
	Time         string `json:"time,omitempty"`
}

func newComponent(cr precheck.ComponentRecord) Component {
	c := Component{
		Kind:     cr.ID.Kind.String(),
		KindCode: cr.ID.Kind.Raw(),
		Key:      cr.ID.Key,
		Status:   cr.Record.Status,
	}
	if !cr.Record.Passed() {
		c.Category = cr.Record.Category.String()
		c.CategoryCode = cr.Record.Category.Raw()
		c.Severity = cr.Record.Severity.String()
		c.SeverityCode = cr.Record.Severity.Raw()
		c.Time = cr.Record.Time
	}
	return c
}

// Link is the rendered link downgrade configuration of one device.
type Link struct {
	Device    string `json:"device"`
	Model     string `json:"model,omitempty"`
	Supported bool   `json:"supported"`
	Available bool   `json:"available"`
	Current   string `json:"current"`
	Action    string `json:"action"`
	Pending   bool   `json:"pending"`
}

func newLink(dev linkdown.Device) Link {
	return Link{
		Device:    dev.ID,
		Model:     dev.Model,
		Supported: dev.Supported,
		Available: dev.Config.Available,
		Current:   dev.Config.Current.String(),
		Action:    dev.Config.Action.String(),
		Pending:   dev.Config.Pending(),
	}
}
