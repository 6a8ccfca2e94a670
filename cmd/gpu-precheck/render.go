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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/aleksandr-podmoskovniy/gpu-precheck/internal/poller"
	"github.com/aleksandr-podmoskovniy/gpu-precheck/pkg/precheck"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func render(w io.Writer, format string, report *poller.Report) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderTable(w, report)
}

func renderTable(w io.Writer, report *poller.Report) error {
	verdict := passStyle.Render(precheck.StatusPass)
	if !report.Passed() {
		verdict = failStyle.Render(precheck.StatusFail)
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("GPU precheck"), verdict)
	fmt.Fprintf(w, "session %s at %s\n", report.SessionID, precheck.FormatTime(report.GeneratedAt))
	if report.BackendInit != nil {
		fmt.Fprintf(w, "backend init: %s\n", report.BackendInit.Message)
	}
	fmt.Fprintln(w)

	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "COMPONENT\tKEY\tSTATUS\tCATEGORY\tSEVERITY\tTIME")
	for _, c := range report.Components {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Kind, dash(c.Key), c.Status, dash(c.Category), dash(c.Severity), dash(c.Time))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if len(report.Links) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	writer = tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "DEVICE\tMODEL\tSUPPORTED\tAVAILABLE\tLINK DOWNGRADE\tPENDING ACTION")
	for _, l := range report.Links {
		fmt.Fprintf(writer, "%s\t%s\t%t\t%t\t%s\t%s\n",
			l.Device, dash(l.Model), l.Supported, l.Available, l.Current, l.Action)
	}
	return writer.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
