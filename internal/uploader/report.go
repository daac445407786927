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

package uploader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tombee/lingohub-upload/internal/actions"
	"github.com/tombee/lingohub-upload/internal/log"
)

// checkReadable opens path to confirm read access and returns its size.
func checkReadable(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file")
	}
	return info.Size(), nil
}

// report writes the step outputs and job summary. Failures to write them
// are logged and do not change the outcome.
func (u *Uploader) report(res *Result) {
	env := u.opts.Actions

	err := env.SetOutputs(
		actions.Output{Name: "files", Value: strconv.Itoa(len(res.Uploaded))},
		actions.Output{Name: "bytes", Value: strconv.FormatInt(res.Bytes, 10)},
		actions.Output{Name: "duration_ms", Value: strconv.FormatInt(res.Duration.Milliseconds(), 10)},
		actions.Output{Name: "status", Value: string(res.State)},
	)
	if err != nil {
		u.logger.Warn("failed to write step outputs", log.Error(err))
	}

	if err := env.AppendSummary(Summary(res)); err != nil {
		u.logger.Warn("failed to write step summary", log.Error(err))
	}
}

// Summary renders res as a markdown table.
func Summary(res *Result) string {
	var b strings.Builder
	b.WriteString("### Lingohub upload\n\n")
	b.WriteString("| | |\n|---|---|\n")

	status := string(res.State)
	if res.DryRun {
		status += " (dry run)"
	}
	row(&b, "Status", status)
	if res.Target != "" {
		row(&b, "Target", res.Target)
	}
	row(&b, "Files", fmt.Sprintf("%d of %d", len(res.Uploaded), len(res.Files)))
	if len(res.Skipped) > 0 {
		row(&b, "Skipped", strconv.Itoa(len(res.Skipped)))
	}
	row(&b, "Bytes", strconv.FormatInt(res.Bytes, 10))
	row(&b, "Duration", fmt.Sprintf("%dms", res.Duration.Milliseconds()))
	if res.Response != nil {
		row(&b, "HTTP status", strconv.Itoa(res.Response.StatusCode))
	}
	if res.Err != nil {
		row(&b, "Error", res.Err.Error())
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

func row(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", key, cellEscaper.Replace(value))
}
