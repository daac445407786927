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

// Package config implements the config command.
package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/lingohub-upload/internal/commands/shared"
	"github.com/tombee/lingohub-upload/internal/config"
	"github.com/tombee/lingohub-upload/internal/secrets"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View the effective configuration",
		Long: `View the configuration an upload would run with.

Subcommands:
  show - Display the merged inputs
  path - Show which config file is used`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display every input after merging flags, environment, config file
and keychain, in the same way 'upload' does.

The API key is masked. Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Long: `Display the config file that would be read: --config, else
.lingohub.yaml or .lingohub.yml in the current directory, else the
per-user file.`,
		Args: cobra.NoArgs,
		RunE: runConfigPath,
	}
}

func load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(context.Background(), config.LoadOptions{
		ConfigPath:     shared.GetConfigPath(),
		Flags:          cmd.Flags(),
		Secrets:        secrets.NewKeychainBackend(""),
		SkipValidation: true,
	})
	if err != nil {
		return nil, shared.ExitErrorFor(err)
	}
	return cfg, nil
}

// runConfigShow displays the current configuration
func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := load(cmd)
	if err != nil {
		return err
	}

	masked := cfg.Redacted()
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			ConfigFile string        `json:"config_file,omitempty"`
			Valid      bool          `json:"valid"`
			Problem    string        `json:"problem,omitempty"`
			Config     config.Config `json:"config"`
		}{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "config show", Success: true},
			ConfigFile:   cfg.ConfigFile,
			Valid:        cfg.Validate() == nil,
			Problem:      problem(cfg),
			Config:       masked,
		})
	}
	return outputConfigYAML(cmd.OutOrStdout(), cfg.ConfigFile, &masked, problem(cfg))
}

// runConfigPath displays the config file path
func runConfigPath(cmd *cobra.Command, _ []string) error {
	cfg, err := load(cmd)
	if err != nil {
		return err
	}
	if cfg.ConfigFile == "" {
		path, err := config.UserConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
		cmd.Println(shared.RenderLabel("no config file found; the per-user file would be " + path))
		return nil
	}
	cmd.Println(cfg.ConfigFile)
	return nil
}

func problem(cfg *config.Config) string {
	if err := cfg.Validate(); err != nil {
		return err.Error()
	}
	return ""
}

// outputConfigYAML outputs config in YAML format
func outputConfigYAML(w io.Writer, path string, cfg *config.Config, problem string) error {
	if path == "" {
		path = "(none)"
	}
	fmt.Fprintf(w, "# Configuration file: %s\n", path)
	if problem != "" {
		fmt.Fprintf(w, "# %s\n", problem)
	}
	fmt.Fprintln(w, "# "+strings.Repeat("=", 48))

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return encoder.Close()
}
