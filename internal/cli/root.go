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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/lingohub-upload/internal/commands/shared"
	"github.com/tombee/lingohub-upload/internal/log"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lingohub-upload",
		Short: "Upload translation resources to Lingohub",
		Long: `lingohub-upload collects resource files by glob pattern and uploads
them to a Lingohub project, either bundled as resources.zip or one by one.

It runs as a GitHub Action (inputs arrive as INPUT_* variables and the
outcome is reported with workflow commands) or as a regular CLI.

Run 'lingohub-upload upload --help' for the available inputs.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateGlobalFlags()
		},
	}

	// Get flag pointers from shared package
	verbose, quiet, json, config, logFormat := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ./.lingohub.yaml, then ~/.config/lingohub-upload/config.yaml)")
	cmd.PersistentFlags().StringVar(logFormat, "log-format", "", "Log format: text, json or actions (default: actions under GitHub Actions, else text)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

func validateGlobalFlags() error {
	_, _, _, _, logFormat := shared.RegisterFlagPointers()
	switch log.Format(*logFormat) {
	case "", log.FormatText, log.FormatJSON, log.FormatActions:
		return nil
	default:
		return shared.NewConfigError(fmt.Sprintf("invalid --log-format %q: must be text, json or actions", *logFormat), nil)
	}
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
