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

package errors

import (
	"fmt"
	"net/http"
)

// ConfigError reports a missing or invalid input. A missing required input
// renders exactly as "Input required and not supplied: <key>".
type ConfigError struct {
	// Key is the input name that has the problem (e.g., "api_key", "locale")
	Key string

	// Reason explains what's wrong with the value. Empty means the input
	// is required and was not supplied.
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("Input required and not supplied: %s", e.Key)
	}
	if e.Key != "" {
		return fmt.Sprintf("invalid input %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	if e.Reason == "" {
		return fmt.Sprintf("Pass --%s, set INPUT_%s, or add %q to the config file",
			flagName(e.Key), envName(e.Key), e.Key)
	}
	return ""
}

// NoFilesError is returned when no pattern matched any file. No request is
// made in that case.
type NoFilesError struct {
	// Pattern is the pattern string exactly as supplied.
	Pattern string
}

// Error implements the error interface.
func (e *NoFilesError) Error() string {
	return fmt.Sprintf("No files found matching pattern: %s", e.Pattern)
}

// IsUserVisible implements UserVisibleError.
func (e *NoFilesError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *NoFilesError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *NoFilesError) Suggestion() string {
	return "Patterns are evaluated relative to the working directory; check working_directory and the glob syntax"
}

// FileAccessError describes a single file that could not be read. It is
// recoverable: the file is skipped and the run continues.
type FileAccessError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.Path, e.Cause)
}

func (e *FileAccessError) Unwrap() error {
	return e.Cause
}

// ArchiveError reports a failure of the compression stream. The upload is
// aborted.
type ArchiveError struct {
	// Op is the stage that failed (e.g., "write", "close", "drain")
	Op    string
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("archive %s: %v", e.Op, e.Cause)
}

func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ArchiveError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ArchiveError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *ArchiveError) Suggestion() string { return "" }

// APIError represents a non-2xx response from the Lingohub API.
type APIError struct {
	// Target is what was being uploaded (a file path or "resources.zip")
	Target string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the server-provided message, or the status reason phrase
	// when the body carried none.
	Message string

	// Body is the raw response body
	Body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("Failed to upload %s: %s", e.Target, msg)
}

// IsUserVisible implements UserVisibleError.
func (e *APIError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *APIError) UserMessage() string { return e.Error() }

// Suggestion implements UserVisibleError.
func (e *APIError) Suggestion() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "Check that api_key is a valid Lingohub API token"
	case http.StatusForbidden:
		return "The API token does not have access to this project"
	case http.StatusNotFound:
		return "Check project_id and the configured endpoint paths"
	default:
		return ""
	}
}

// ErrorType implements ErrorClassifier.
func (e *APIError) ErrorType() string { return "api" }

// IsRetryable implements ErrorClassifier. Uploads are never retried.
func (e *APIError) IsRetryable() bool { return false }
