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

// ErrorType describes a well-known precheck error.
type ErrorType struct {
	ID       int
	Name     string
	Category ErrorCategory
	Severity ErrorSeverity
}

// Finding builds a failing finding for this error type.
func (e ErrorType) Finding(at string) Finding {
	return Finding{
		Status:   StatusFail,
		Category: e.Category,
		Severity: e.Severity,
		Time:     at,
	}
}

var errorTypes = []ErrorType{
	{ID: 1, Name: "GuC Not Running", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 2, Name: "GuC Error", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 3, Name: "GuC Initialization Failed", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 4, Name: "IOMMU Catastrophic Error", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 5, Name: "LMEM Not Initialized By Firmware", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 6, Name: "PCIe Error", Category: CategoryHardware, Severity: SeverityCritical},
	{ID: 7, Name: "DRM Error", Category: CategoryKernelModeDriver, Severity: SeverityCritical},
	{ID: 8, Name: "GPU Hang", Category: CategoryKernelModeDriver, Severity: SeverityCritical},
	{ID: 9, Name: "i915 Error", Category: CategoryKernelModeDriver, Severity: SeverityCritical},
	{ID: 10, Name: "i915 Not Loaded", Category: CategoryKernelModeDriver, Severity: SeverityCritical},
	{ID: 11, Name: "Level Zero Initialization Error", Category: CategoryKernelModeDriver, Severity: SeverityCritical},
	{ID: 12, Name: "HuC Disabled", Category: CategoryHardware, Severity: SeverityHigh},
	{ID: 13, Name: "HuC Not Running", Category: CategoryHardware, Severity: SeverityHigh},
	{ID: 14, Name: "Level Zero Metrics Initialization Error", Category: CategoryUserModeDriver, Severity: SeverityHigh},
}

// ErrorTypes returns the catalog of well-known precheck errors ordered by id.
func ErrorTypes() []ErrorType {
	out := make([]ErrorType, len(errorTypes))
	copy(out, errorTypes)
	return out
}

// LookupErrorType returns the catalog entry with the given id.
func LookupErrorType(id int) (ErrorType, bool) {
	for _, et := range errorTypes {
		if et.ID == id {
			return et, true
		}
	}
	return ErrorType{}, false
}
