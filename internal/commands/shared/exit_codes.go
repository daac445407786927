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

package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/tombee/lingohub-upload/internal/actions"
	pkgerrors "github.com/tombee/lingohub-upload/pkg/errors"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitUploadFailed = 1
	ExitNoFiles      = 2
	ExitConfigError  = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message == "" && e.Cause != nil:
		return e.Cause.Error()
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	default:
		return e.Message
	}
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates an error for invalid or missing inputs
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfigError, Message: msg, Cause: cause}
}

// NewUploadError creates an error for failed uploads
func NewUploadError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUploadFailed, Message: msg, Cause: cause}
}

// ExitErrorFor maps a run failure to its exit code. The message is the
// error's own, so the reported failure reads exactly as the error.
func ExitErrorFor(err error) *ExitError {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if pkgerrors.As(err, &exitErr) {
		return exitErr
	}

	code := ExitUploadFailed
	var (
		cfgErr     *pkgerrors.ConfigError
		noFilesErr *pkgerrors.NoFilesError
	)
	switch {
	case pkgerrors.As(err, &cfgErr):
		code = ExitConfigError
	case pkgerrors.As(err, &noFilesErr):
		code = ExitNoFiles
	}
	return &ExitError{Code: code, Cause: err}
}

// PrintError writes the single failure message for err, followed by the
// suggestion of the first user-visible error in its chain.
func PrintError(w io.Writer, err error, actionsFormat bool) {
	env := &actions.Environment{Enabled: actionsFormat}
	env.SetFailed(w, err.Error())

	if suggestion := pkgerrors.SuggestionFor(err); suggestion != "" {
		if actionsFormat {
			fmt.Fprintf(w, "Suggestion: %s\n", suggestion)
		} else {
			fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
		}
	}
}

// HandleExitError prints err once and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	exitErr := ExitErrorFor(err)
	PrintError(os.Stderr, exitErr, ActionsFormat())
	os.Exit(exitErr.Code)
}
