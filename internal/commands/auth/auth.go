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

// Package auth implements the login and logout commands, which keep the
// API key in the system keychain.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/lingohub-upload/internal/commands/shared"
	"github.com/tombee/lingohub-upload/internal/config"
	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/internal/secrets"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the Lingohub API key in the system keychain",
		Long: `Store the Lingohub API key in the system keychain.

The key is read from a hidden prompt, or from stdin when it is piped:

  echo "$LINGOHUB_TOKEN" | lingohub-upload login

Uploads use the stored key when api_key is not given any other way.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Lingohub API key",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	backend := secrets.NewKeychainBackend("")
	if !backend.Available() {
		return shared.NewConfigError("cannot store API key", secrets.ErrBackendUnavailable)
	}

	key, err := readAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return shared.NewConfigError("API key cannot be empty", nil)
	}

	if err := backend.Set(context.Background(), config.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	if !shared.GetQuiet() {
		cmd.Println(shared.RenderOK(fmt.Sprintf("API key %s stored in %s", log.SanitizeAPIKey(key), backend.Name())))
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	backend := secrets.NewKeychainBackend("")
	if !backend.Available() {
		return shared.NewConfigError("cannot remove API key", secrets.ErrBackendUnavailable)
	}

	err := backend.Delete(context.Background(), config.KeyAPIKey)
	switch {
	case errors.Is(err, secrets.ErrSecretNotFound):
		if !shared.GetQuiet() {
			cmd.Println(shared.RenderWarn("No API key stored"))
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to remove API key: %w", err)
	}

	if !shared.GetQuiet() {
		cmd.Println(shared.RenderOK("API key removed"))
	}
	return nil
}

// readAPIKey prompts with hidden input on a terminal and otherwise reads
// the first line of in.
func readAPIKey(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Lingohub API key (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
