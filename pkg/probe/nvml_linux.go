//go:build linux && cgo

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

package probe

import (
	"fmt"
	"strings"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/initresult"
)

func initNVML() error {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return &InitError{Result: resultFromNVML(ret), Detail: nvml.ErrorString(ret)}
	}
	return nil
}

func shutdownNVML() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("shutdown NVML: %s", nvml.ErrorString(ret))
	}
	return nil
}

func resultFromNVML(ret nvml.Return) initresult.Result {
	switch ret {
	case nvml.SUCCESS:
		return initresult.Success
	case nvml.ERROR_NO_PERMISSION:
		return initresult.Uninitialized
	case nvml.ERROR_LIBRARY_NOT_FOUND, nvml.ERROR_DRIVER_NOT_LOADED:
		return initresult.DependencyUnavailable
	default:
		return initresult.Result(nvmlResultBase + int(ret))
	}
}

func queryNVML() ([]LinkFacts, error) {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("get GPU count: %v", nvml.ErrorString(ret))
	}
	facts := make([]LinkFacts, 0, count)

	for i := 0; i < count; i++ {
		warnings := warningCollector{}

		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}

		pciInfo, ret := device.GetPciInfo()
		if ret != nvml.SUCCESS {
			continue
		}
		link := LinkFacts{Address: formatPCIAddress(pciInfo)}

		if name, nameErr := device.GetName(); nameErr == nvml.SUCCESS {
			link.Name = name
		} else {
			warnings.addf("gpu %s: get name: %v", link.Address, nvml.ErrorString(nameErr))
		}
		if width, widthErr := device.GetCurrPcieLinkWidth(); widthErr == nvml.SUCCESS {
			link.CurrentWidth = width
		} else {
			warnings.addf("gpu %s: get current pcie link width: %v", link.Address, nvml.ErrorString(widthErr))
		}
		if width, widthErr := device.GetMaxPcieLinkWidth(); widthErr == nvml.SUCCESS {
			link.MaxWidth = width
		} else {
			warnings.addf("gpu %s: get max pcie link width: %v", link.Address, nvml.ErrorString(widthErr))
		}
		if gen, genErr := device.GetCurrPcieLinkGeneration(); genErr == nvml.SUCCESS {
			link.CurrentGeneration = gen
		} else {
			warnings.addf("gpu %s: get current pcie link generation: %v", link.Address, nvml.ErrorString(genErr))
		}
		if gen, genErr := device.GetMaxPcieLinkGeneration(); genErr == nvml.SUCCESS {
			link.MaxGeneration = gen
		} else {
			warnings.addf("gpu %s: get max pcie link generation: %v", link.Address, nvml.ErrorString(genErr))
		}

		if len(warnings) > 0 {
			link.Warnings = warnings
		}
		facts = append(facts, link)
	}

	return facts, nil
}

func formatPCIAddress(info nvml.PciInfo) string {
	function := extractPCIFunction(info.BusId[:])
	address := fmt.Sprintf("%04x:%02x:%02x.%s", info.Domain&0xffff, info.Bus&0xff, info.Device&0xff, function)
	return strings.ToLower(address)
}

func extractPCIFunction(buf []int8) string {
	raw := strings.TrimSpace(cString(buf))
	if idx := strings.LastIndex(raw, "."); idx >= 0 && idx+1 < len(raw) {
		return raw[idx+1:]
	}
	return "0"
}

func cString(buf []int8) string {
	var b strings.Builder
	for _, c := range buf {
		if c == 0 {
			break
		}
		b.WriteByte(byte(c))
	}
	return b.String()
}
