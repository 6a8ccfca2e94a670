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

const unknownLabel = "Unknown"

// ComponentKind identifies the kind of component a diagnostic record belongs to.
// Values outside the known set are kept as-is and render as "Unknown".
type ComponentKind int

const (
	ComponentNone   ComponentKind = 0
	ComponentDriver ComponentKind = 1
	ComponentGPU    ComponentKind = 2
	ComponentCPU    ComponentKind = 3
)

// ClassifyComponent maps a raw component code to a ComponentKind.
func ClassifyComponent(raw int) ComponentKind {
	return ComponentKind(raw)
}

// IsKnown reports whether k is one of the documented component kinds.
func (k ComponentKind) IsKnown() bool {
	switch k {
	case ComponentNone, ComponentDriver, ComponentGPU, ComponentCPU:
		return true
	}
	return false
}

// Raw returns the integer code the value was classified from.
func (k ComponentKind) Raw() int { return int(k) }

func (k ComponentKind) String() string {
	switch k {
	case ComponentNone:
		return "None"
	case ComponentDriver:
		return "Driver"
	case ComponentGPU:
		return "GPU"
	case ComponentCPU:
		return "CPU"
	default:
		return unknownLabel
	}
}

// ErrorCategory tells which layer of the stack reported a fault.
type ErrorCategory int

const (
	CategoryNone             ErrorCategory = 0
	CategoryKernelModeDriver ErrorCategory = 1
	CategoryUserModeDriver   ErrorCategory = 2
	CategoryHardware         ErrorCategory = 4
)

// ClassifyCategory maps a raw category code to an ErrorCategory.
func ClassifyCategory(raw int) ErrorCategory {
	return ErrorCategory(raw)
}

// IsKnown reports whether c is one of the documented categories.
func (c ErrorCategory) IsKnown() bool {
	switch c {
	case CategoryNone, CategoryKernelModeDriver, CategoryUserModeDriver, CategoryHardware:
		return true
	}
	return false
}

// Raw returns the integer code the value was classified from.
func (c ErrorCategory) Raw() int { return int(c) }

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "None"
	case CategoryKernelModeDriver:
		return "Kernel Mode Driver"
	case CategoryUserModeDriver:
		return "User Mode Driver"
	case CategoryHardware:
		return "Hardware"
	default:
		return unknownLabel
	}
}

// ErrorSeverity is ordered None < Low < Medium < High < Critical.
type ErrorSeverity int

const (
	SeverityNone     ErrorSeverity = 0
	SeverityLow      ErrorSeverity = 1
	SeverityMedium   ErrorSeverity = 2
	SeverityHigh     ErrorSeverity = 4
	SeverityCritical ErrorSeverity = 8
)

// ClassifySeverity maps a raw severity code to an ErrorSeverity.
func ClassifySeverity(raw int) ErrorSeverity {
	return ErrorSeverity(raw)
}

// IsKnown reports whether s is one of the documented severities.
func (s ErrorSeverity) IsKnown() bool {
	return s.Rank() >= 0
}

// Raw returns the integer code the value was classified from.
func (s ErrorSeverity) Raw() int { return int(s) }

// Rank returns the position of s in the severity order, or -1 for unknown values.
func (s ErrorSeverity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// AtLeast reports whether s is known and not lower than other.
func (s ErrorSeverity) AtLeast(other ErrorSeverity) bool {
	return s.IsKnown() && other.IsKnown() && s.Rank() >= other.Rank()
}

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityNone:
		return "None"
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return unknownLabel
	}
}
