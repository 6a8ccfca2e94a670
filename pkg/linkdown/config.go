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

// Package linkdown models the PCIe link downgrade capability of a device.
package linkdown

import "strings"

// State is the link downgrade mode of a device.
type State int

const (
	StateUnavailable State = 0
	StateEnabled     State = 1
	StateDisabled    State = 2
)

func (s State) String() string {
	switch s {
	case StateUnavailable:
		return "Unavailable"
	case StateEnabled:
		return "Enabled"
	case StateDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Action is the reset tier needed before a requested state takes effect.
// Tiers are ordered WarmCardReset < ColdCardReset < ColdSystemReboot.
type Action int

const (
	ActionNone             Action = 0
	ActionWarmCardReset    Action = 1
	ActionColdCardReset    Action = 2
	ActionColdSystemReboot Action = 3
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionWarmCardReset:
		return "Warm Card Reset"
	case ActionColdCardReset:
		return "Cold Card Reset"
	case ActionColdSystemReboot:
		return "Cold System Reboot"
	default:
		return "Unknown"
	}
}

// MoreDisruptiveThan reports whether a needs a heavier reset than other.
func (a Action) MoreDisruptiveThan(other Action) bool {
	return a > other
}

// MaxAction returns the most disruptive of the given actions.
func MaxAction(actions ...Action) Action {
	out := ActionNone
	for _, a := range actions {
		if a.MoreDisruptiveThan(out) {
			out = a
		}
	}
	return out
}

// ParseState parses a state name as rendered by State.String, ignoring case and spaces.
func ParseState(s string) (State, bool) {
	for _, st := range []State{StateUnavailable, StateEnabled, StateDisabled} {
		if normalize(st.String()) == normalize(s) {
			return st, true
		}
	}
	return StateUnavailable, false
}

// ParseAction parses an action name as rendered by Action.String, ignoring case and spaces.
func ParseAction(s string) (Action, bool) {
	for _, a := range []Action{ActionNone, ActionWarmCardReset, ActionColdCardReset, ActionColdSystemReboot} {
		if normalize(a.String()) == normalize(s) {
			return a, true
		}
	}
	return ActionNone, false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Config is the link downgrade triple of a single device. Setters are
// unconditional: checking that a state is reachable is left to the caller.
type Config struct {
	Available bool   `json:"available"`
	Current   State  `json:"current"`
	Action    Action `json:"action"`
}

// NewConfig returns the configuration of a device with no known capability.
func NewConfig() Config {
	return Config{Current: StateUnavailable, Action: ActionNone}
}

// NewConfigWith returns a configuration with the given capability facts.
func NewConfigWith(available bool, current State) Config {
	return Config{Available: available, Current: current, Action: ActionNone}
}

// SetAvailable records whether the device supports link downgrade.
func (c *Config) SetAvailable(available bool) {
	c.Available = available
}

// SetCurrent records the requested state. The pending action is left as is.
func (c *Config) SetCurrent(state State) {
	c.Current = state
}

// SetAction records the reset needed to realize the last requested state.
func (c *Config) SetAction(action Action) {
	c.Action = action
}

// Pending reports whether a requested state still waits for a reset.
func (c Config) Pending() bool {
	return c.Action != ActionNone
}

// Applied marks the pending transition as realized.
func (c *Config) Applied() {
	c.Action = ActionNone
}

// Consistent reports whether an Unavailable state is paired with Available == false.
func (c Config) Consistent() bool {
	return c.Current != StateUnavailable || !c.Available
}
