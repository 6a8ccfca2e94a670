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

package collector

import (
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const MetricNamespace = "gpu_precheck"

const (
	MetricComponentStatus = "component_status"
	MetricLinkDowngrade   = "link_downgrade"
	MetricBackendInit     = "backend_init_ok"
)

var invalidLabelCharRE = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// MetricInfo describes a prometheus metric definition.
type MetricInfo struct {
	Desc *prometheus.Desc
	Type prometheus.ValueType
}

func newMetricInfo(name, help string, t prometheus.ValueType, labels []string, constLabels prometheus.Labels) MetricInfo {
	return MetricInfo{
		Desc: prometheus.NewDesc(
			prometheus.BuildFQName(MetricNamespace, "", name),
			help,
			labels,
			sanitizeLabels(constLabels),
		),
		Type: t,
	}
}

func newMetrics(constLabels prometheus.Labels) map[string]MetricInfo {
	return map[string]MetricInfo{
		MetricComponentStatus: newMetricInfo(MetricComponentStatus,
			"Latched precheck status per component, 1 when the component failed.",
			prometheus.GaugeValue,
			[]string{"kind", "kind_code", "key", "status", "category", "severity"},
			constLabels),
		MetricLinkDowngrade: newMetricInfo(MetricLinkDowngrade,
			"PCIe link downgrade configuration per device, 1 while a reset is pending.",
			prometheus.GaugeValue,
			[]string{"device", "state", "action", "available"},
			constLabels),
		MetricBackendInit: newMetricInfo(MetricBackendInit,
			"Whether the device backend initialized, labelled by its result code.",
			prometheus.GaugeValue,
			[]string{"code"},
			constLabels),
	}
}

// sanitizeLabels replaces characters prometheus does not accept in label names.
func sanitizeLabels(labels prometheus.Labels) prometheus.Labels {
	if len(labels) == 0 {
		return nil
	}
	out := make(prometheus.Labels, len(labels))
	for k, v := range labels {
		if v == "" {
			continue
		}
		out[strings.ToLower(invalidLabelCharRE.ReplaceAllString(k, "_"))] = v
	}
	return out
}
