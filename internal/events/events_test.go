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

package events

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/linkdown"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
)

const sample = `
backendInit: 2
host:
  cpus: [0, 1]
  events:
    - component: 1
      category: 1
      severity: 8
      time: "2025-01-01 10:00:00"
    - component: 3
      key: "1"
      errorId: 4
devices:
  - address: "0000:4d:00.0"
    model: bmg
    linkDowngrade:
      supported: true
      available: true
      current: 2
      action: 2
    events:
      - component: 2
        status: Fail
        category: 4
        severity: 8
        time: "2025-01-01 10:00:01"
`

func TestDecodeSample(t *testing.T) {
	f, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.NotNil(t, f.BackendInit)
	require.Equal(t, 2, *f.BackendInit)
	require.Equal(t, []int{0, 1}, f.Host.CPUs)
	require.Len(t, f.Host.Events, 2)
	require.Len(t, f.Devices, 1)

	dev := f.Devices[0]
	require.Equal(t, "bmg", dev.Model)
	require.NotNil(t, dev.LinkDowngrade)
	require.Equal(t, linkdown.Config{Available: true, Current: linkdown.StateDisabled, Action: linkdown.ActionColdCardReset}, dev.LinkDowngrade.Config())

	ev := dev.Events[0]
	require.Equal(t, precheck.GPU("0000:4d:00.0"), ev.ComponentID(dev.Address))
	require.Equal(t, precheck.Finding{
		Status:   precheck.StatusFail,
		Category: precheck.CategoryHardware,
		Severity: precheck.SeverityCritical,
		Time:     "2025-01-01 10:00:01",
	}, ev.Finding())
}

func TestEventDefaults(t *testing.T) {
	driver := Event{Component: intPtr(1), Key: "ignored-when-set"}
	require.Equal(t, precheck.ComponentID{Kind: precheck.ComponentDriver, Key: "ignored-when-set"}, driver.ComponentID("dev"))
	require.Equal(t, precheck.DriverID, Event{Component: intPtr(1)}.ComponentID("dev"))
	require.Equal(t, precheck.GPU("dev"), Event{ErrorID: 1}.ComponentID("dev"))

	f := Event{Component: intPtr(3), ErrorID: 14, Time: "T"}.Finding()
	require.Equal(t, precheck.StatusFail, f.Status)
	require.Equal(t, precheck.CategoryUserModeDriver, f.Category)
	require.Equal(t, precheck.SeverityHigh, f.Severity)

	raw := Event{Component: intPtr(2), Category: 64, Severity: 3}.Finding()
	require.False(t, raw.Category.IsKnown())
	require.Equal(t, 64, raw.Category.Raw())
	require.Equal(t, 3, raw.Severity.Raw())
}

func intPtr(v int) *int { return &v }

func TestDecodeDeviceEventWithoutComponent(t *testing.T) {
	f, err := Decode(strings.NewReader(`
devices:
  - address: "0000:4d:00.0"
    events:
      - errorId: 1
`))
	require.NoError(t, err)
	ev := f.Devices[0].Events[0]
	require.Nil(t, ev.Component)
	require.Equal(t, precheck.GPU("0000:4d:00.0"), ev.ComponentID("0000:4d:00.0"))
}

func TestDecodeRejectsHostEventWithoutComponent(t *testing.T) {
	_, err := Decode(strings.NewReader("host:\n  events:\n    - errorId: 7\n"))
	require.ErrorContains(t, err, "component must be set")
}

func TestDecodeEmpty(t *testing.T) {
	f, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Nil(t, f.BackendInit)
	require.Empty(t, f.Devices)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode(strings.NewReader("unknownField: 1\n"))
	require.Error(t, err)

	_, err = Decode(strings.NewReader("devices:\n  - model: bmg\n"))
	require.ErrorContains(t, err, "address must be set")

	_, err = Decode(strings.NewReader("devices:\n  - address: a\n  - address: a\n"))
	require.ErrorContains(t, err, "duplicate address")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Devices, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
