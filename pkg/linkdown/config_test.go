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

import "testing"

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Available || cfg.Current != StateUnavailable || cfg.Action != ActionNone {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Pending() {
		t.Fatalf("default config must not be pending")
	}
	if !cfg.Consistent() {
		t.Fatalf("default config must be consistent")
	}
}

func TestSettersAreIndependent(t *testing.T) {
	cfg := NewConfig()
	cfg.SetAvailable(true)
	cfg.SetCurrent(StateDisabled)
	cfg.SetAction(ActionColdCardReset)

	want := Config{Available: true, Current: StateDisabled, Action: ActionColdCardReset}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}

	cfg.SetCurrent(StateEnabled)
	if cfg.Action != ActionColdCardReset {
		t.Fatalf("SetCurrent must not touch the action, got %s", cfg.Action)
	}
	cfg.SetAvailable(false)
	if cfg.Action != ActionColdCardReset || cfg.Current != StateEnabled {
		t.Fatalf("SetAvailable must only touch the flag, got %+v", cfg)
	}
}

func TestAppliedClearsAction(t *testing.T) {
	cfg := NewConfigWith(true, StateEnabled)
	cfg.SetAction(ActionWarmCardReset)
	if !cfg.Pending() {
		t.Fatalf("expected pending transition")
	}
	cfg.Applied()
	if cfg.Pending() || cfg.Action != ActionNone {
		t.Fatalf("expected no pending action, got %s", cfg.Action)
	}
	if cfg.Current != StateEnabled || !cfg.Available {
		t.Fatalf("Applied must keep state, got %+v", cfg)
	}
}

func TestConsistent(t *testing.T) {
	if NewConfigWith(true, StateUnavailable).Consistent() {
		t.Fatalf("available with unavailable state must be inconsistent")
	}
	if !NewConfigWith(false, StateDisabled).Consistent() {
		t.Fatalf("unavailable capability with disabled state is allowed")
	}
}

func TestActionOrdering(t *testing.T) {
	if !ActionColdSystemReboot.MoreDisruptiveThan(ActionColdCardReset) ||
		!ActionColdCardReset.MoreDisruptiveThan(ActionWarmCardReset) ||
		!ActionWarmCardReset.MoreDisruptiveThan(ActionNone) {
		t.Fatalf("reset tiers out of order")
	}
	if got := MaxAction(ActionWarmCardReset, ActionColdSystemReboot, ActionColdCardReset); got != ActionColdSystemReboot {
		t.Fatalf("unexpected max action %s", got)
	}
	if got := MaxAction(); got != ActionNone {
		t.Fatalf("empty max must be None, got %s", got)
	}
}

func TestParse(t *testing.T) {
	if st, ok := ParseState("enabled"); !ok || st != StateEnabled {
		t.Fatalf("unexpected state %s ok=%v", st, ok)
	}
	if _, ok := ParseState("half"); ok {
		t.Fatalf("unknown state must not parse")
	}
	if a, ok := ParseAction("coldCardReset"); !ok || a != ActionColdCardReset {
		t.Fatalf("unexpected action %s ok=%v", a, ok)
	}
	if a, ok := ParseAction("Cold System Reboot"); !ok || a != ActionColdSystemReboot {
		t.Fatalf("unexpected action %s ok=%v", a, ok)
	}
	if _, ok := ParseAction("power cycle"); ok {
		t.Fatalf("unknown action must not parse")
	}
}

func TestStrings(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{StateUnavailable.String(), "Unavailable"},
		{StateEnabled.String(), "Enabled"},
		{StateDisabled.String(), "Disabled"},
		{State(9).String(), "Unknown"},
		{ActionNone.String(), "None"},
		{ActionWarmCardReset.String(), "Warm Card Reset"},
		{ActionColdCardReset.String(), "Cold Card Reset"},
		{ActionColdSystemReboot.String(), "Cold System Reboot"},
		{Action(-1).String(), "Unknown"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, tc.got)
		}
	}
}
