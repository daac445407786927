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

package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tombee/lingohub-upload/internal/commands/shared"
	"github.com/tombee/lingohub-upload/internal/config"
	"github.com/tombee/lingohub-upload/internal/secrets"
)

func run(t *testing.T, cmd *cobra.Command, stdin string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(nil)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginLogout(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	out, err := run(t, NewLoginCommand(), "lh-0123456789abcdef\n")
	require.NoError(t, err)
	assert.Contains(t, out, "stored in keychain")
	assert.NotContains(t, out, "0123456789abcdef")

	stored, err := secrets.NewKeychainBackend("").Get(ctx, config.KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "lh-0123456789abcdef", stored)

	out, err = run(t, NewLogoutCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "API key removed")

	out, err = run(t, NewLogoutCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "No API key stored")
}

func TestLogin_EmptyKey(t *testing.T) {
	keyring.MockInit()

	_, err := run(t, NewLoginCommand(), "   \n")
	var exitErr *shared.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, shared.ExitConfigError, exitErr.Code)
}

func TestLogin_KeychainUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: no session bus"))

	_, err := run(t, NewLoginCommand(), "key\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrBackendUnavailable)
}

func TestReadAPIKey_NoTrailingNewline(t *testing.T) {
	key, err := readAPIKey(strings.NewReader("abc"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "abc", key)
}
