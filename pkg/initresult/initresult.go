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

// Package initresult turns backend initialization result codes into readable diagnoses.
package initresult

import "fmt"

// Result is a backend initialization result code.
type Result int

const (
	Success               Result = 0
	NotReady              Result = 1
	Uninitialized         Result = 2
	DependencyUnavailable Result = 3
)

// Known reports whether r has a dedicated message.
func (r Result) Known() bool {
	return r >= Success && r <= DependencyUnavailable
}

// OK reports whether the backend initialized successfully.
func (r Result) OK() bool { return r == Success }

// Remediation returns the hint shown to the operator, if any.
func (r Result) Remediation() string {
	switch r {
	case Uninitialized:
		return "Please check if you have root privileges."
	case DependencyUnavailable:
		return "Maybe the metrics libraries aren't ready."
	default:
		return ""
	}
}

func (r Result) String() string {
	switch r {
	case Success:
		return "ZE_RESULT_SUCCESS"
	case NotReady:
		return "ZE_RESULT_NOT_READY"
	case Uninitialized:
		return "[0x78000001] ZE_RESULT_ERROR_UNINITIALIZED. " + r.Remediation()
	case DependencyUnavailable:
		return "[0x70020000] ZE_RESULT_ERROR_DEPENDENCY_UNAVAILABLE. " + r.Remediation()
	default:
		return fmt.Sprintf("Generic error with ze_result_t value: %d", int(r))
	}
}

// Interpret returns the diagnosis for a raw initialization result code.
func Interpret(code int) string {
	return Result(code).String()
}
