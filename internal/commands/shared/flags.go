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
	"io"
	"log/slog"

	"github.com/tombee/lingohub-upload/internal/log"
)

// Global flag values - set by root command
var (
	verboseFlag   bool
	quietFlag     bool
	jsonFlag      bool
	configFlag    string
	logFormatFlag string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() (verbose, quiet, json *bool, config, logFormat *string) {
	return &verboseFlag, &quietFlag, &jsonFlag, &configFlag, &logFormatFlag
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// UserAgent identifies this build in API requests.
func UserAgent() string {
	return "lingohub-upload/" + version
}

// LogConfig returns the logging configuration: the environment, then
// --log-format, then --verbose or --quiet.
func LogConfig(w io.Writer) *log.Config {
	cfg := log.FromEnv()
	cfg.Output = w
	if logFormatFlag != "" {
		cfg.Format = log.Format(logFormatFlag)
	}
	switch {
	case verboseFlag:
		cfg.Level = "debug"
	case quietFlag:
		cfg.Level = "error"
	}
	return cfg
}

// NewLogger creates the logger commands write progress to.
func NewLogger(w io.Writer) *slog.Logger {
	return log.New(LogConfig(w))
}

// ActionsFormat reports whether failures are rendered as workflow commands.
func ActionsFormat() bool {
	return LogConfig(io.Discard).Format == log.FormatActions
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	verboseFlag, quietFlag, jsonFlag = false, false, false
	configFlag, logFormatFlag = "", ""
}
