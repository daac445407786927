// Copyright 2025 Tom Barlow
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

// Package actions writes step outputs and the job summary of a GitHub
// Actions run through the files the runner provides.
package actions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/tombee/lingohub-upload/internal/log"
)

// Output is one step output.
type Output struct {
	Name  string
	Value string
}

// Environment locates the runner's command files. Empty paths disable the
// corresponding feature, so the zero value is a no-op outside Actions.
type Environment struct {
	// Enabled is true when running under GitHub Actions.
	Enabled bool

	// OutputPath is $GITHUB_OUTPUT.
	OutputPath string

	// SummaryPath is $GITHUB_STEP_SUMMARY.
	SummaryPath string

	// Delimiter generates heredoc delimiters for multi-line values.
	// Default: a random UUID based delimiter.
	Delimiter func() string
}

// FromEnv reads the runner environment.
func FromEnv() *Environment {
	return &Environment{
		Enabled:     os.Getenv("GITHUB_ACTIONS") == "true",
		OutputPath:  os.Getenv("GITHUB_OUTPUT"),
		SummaryPath: os.Getenv("GITHUB_STEP_SUMMARY"),
	}
}

// SetOutputs appends outputs to $GITHUB_OUTPUT.
func (e *Environment) SetOutputs(outputs ...Output) error {
	if e.OutputPath == "" || len(outputs) == 0 {
		return nil
	}

	var b strings.Builder
	for _, o := range outputs {
		if o.Name == "" {
			return fmt.Errorf("output name is required")
		}
		if !strings.ContainsAny(o.Value, "\r\n") {
			fmt.Fprintf(&b, "%s=%s\n", o.Name, o.Value)
			continue
		}
		delim := e.delimiter()
		if strings.Contains(o.Value, delim) || strings.Contains(o.Name, delim) {
			return fmt.Errorf("output %s: value contains delimiter %s", o.Name, delim)
		}
		fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", o.Name, delim, o.Value, delim)
	}
	return appendFile(e.OutputPath, b.String())
}

// AppendSummary appends markdown to $GITHUB_STEP_SUMMARY.
func (e *Environment) AppendSummary(markdown string) error {
	if e.SummaryPath == "" || markdown == "" {
		return nil
	}
	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}
	return appendFile(e.SummaryPath, markdown)
}

// AddMask asks the runner to redact value from all later log output.
func (e *Environment) AddMask(w io.Writer, value string) {
	if e.Enabled && value != "" {
		fmt.Fprintln(w, log.Command("add-mask", value))
	}
}

// SetFailed reports msg as the step's failure: an ::error:: command under
// Actions, a plain "Error: msg" line otherwise.
func (e *Environment) SetFailed(w io.Writer, msg string) {
	if e.Enabled {
		fmt.Fprintln(w, log.Command("error", msg))
		return
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
}

func (e *Environment) delimiter() string {
	if e.Delimiter != nil {
		return e.Delimiter()
	}
	return "ghadelimiter_" + uuid.NewString()
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
