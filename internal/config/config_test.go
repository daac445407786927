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

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uploaderrors "github.com/tombee/lingohub-upload/pkg/errors"
)

type fakeSecrets map[string]string

func (f fakeSecrets) Get(_ context.Context, key string) (string, error) {
	if v, ok := f[key]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}

// isolate clears every input variable and points config lookups at empty
// directories. It returns the working directory to use.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range Keys {
		t.Setenv(EnvName(key), "")
		t.Setenv("LINGOHUB_"+strings.ToUpper(key), "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return t.TempDir()
}

func load(t *testing.T, cwd string, opts LoadOptions) (*Config, error) {
	t.Helper()
	opts.Getwd = func() (string, error) { return cwd, nil }
	return Load(context.Background(), opts)
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("INPUT_API_KEY", "test-api-key")
	t.Setenv("INPUT_PROJECT_ID", "test-project-id")
	t.Setenv("INPUT_FILES", "*.json")
}

func TestLoad_Defaults(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)

	cfg, err := load(t, cwd, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "test-api-key", cfg.APIKey)
	assert.Equal(t, "test-project-id", cfg.ProjectID)
	assert.Equal(t, "*.json", cfg.Files)
	assert.Equal(t, "auto", cfg.Locale)
	assert.Equal(t, ModeZip, cfg.Mode)
	assert.Equal(t, "https://api.lingohub.com/v1", cfg.BaseURL)
	assert.Equal(t, "/projects/{project_id}/resources/zip", cfg.ArchivePath)
	assert.Equal(t, "/projects/{project_id}/resources", cfg.ResourcePath)
	assert.Equal(t, ".message", cfg.MessageQuery)
	assert.Equal(t, cwd, cfg.WorkingDirectory)
	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "nothing set reports api_key first",
			env:     map[string]string{},
			wantMsg: "Input required and not supplied: api_key",
		},
		{
			name:    "api_key missing",
			env:     map[string]string{"INPUT_PROJECT_ID": "p", "INPUT_FILES": "*.json"},
			wantMsg: "Input required and not supplied: api_key",
		},
		{
			name:    "whitespace api_key counts as missing",
			env:     map[string]string{"INPUT_API_KEY": "   ", "INPUT_PROJECT_ID": "p", "INPUT_FILES": "*.json"},
			wantMsg: "Input required and not supplied: api_key",
		},
		{
			name:    "project_id missing",
			env:     map[string]string{"INPUT_API_KEY": "k", "INPUT_FILES": "*.json"},
			wantMsg: "Input required and not supplied: project_id",
		},
		{
			name:    "files missing",
			env:     map[string]string{"INPUT_API_KEY": "k", "INPUT_PROJECT_ID": "p"},
			wantMsg: "Input required and not supplied: files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cwd := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load(t, cwd, LoadOptions{})
			require.Error(t, err)

			var cfgErr *uploaderrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)

	require.NoError(t, os.WriteFile(filepath.Join(cwd, ".lingohub.yaml"), []byte(`
project_id: from-file
locale: de
mode: files
timeout: 45s
`), 0o644))

	t.Setenv("LINGOHUB_LOCALE", "fr")
	t.Setenv("LINGOHUB_MODE", "zip")
	t.Setenv("INPUT_MODE", "files")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--project-id", "from-flag"}))

	cfg, err := load(t, cwd, LoadOptions{Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.ProjectID, "flag beats env and file")
	assert.Equal(t, "fr", cfg.Locale, "LINGOHUB_ env beats file")
	assert.Equal(t, ModeFiles, cfg.Mode, "INPUT_ env beats LINGOHUB_ env")
	assert.Equal(t, 45*time.Second, cfg.Timeout, "file beats default")
	assert.Equal(t, filepath.Join(cwd, ".lingohub.yaml"), cfg.ConfigFile)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := load(t, cwd, LoadOptions{Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, "test-project-id", cfg.ProjectID)
	assert.Equal(t, "auto", cfg.Locale)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	cwd := isolate(t)
	path := filepath.Join(t.TempDir(), "upload.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_key: file-key
project_id: file-project
files: "locales/**/*.json, !locales/draft/**"
working_directory: app
`), 0o644))

	cfg, err := load(t, cwd, LoadOptions{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "locales/**/*.json, !locales/draft/**", cfg.Files)
	assert.Equal(t, filepath.Join(cwd, "app"), cfg.WorkingDirectory)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_UserConfigFile(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)

	dir, err := ConfigDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("base_url: https://lingohub.internal/api\n"), 0o600))

	cfg, err := load(t, cwd, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://lingohub.internal/api", cfg.BaseURL)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)

	_, err := load(t, cwd, LoadOptions{ConfigPath: filepath.Join(cwd, "nope.yaml")})
	var cfgErr *uploaderrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_KeychainFallback(t *testing.T) {
	cwd := isolate(t)
	t.Setenv("INPUT_PROJECT_ID", "p")
	t.Setenv("INPUT_FILES", "*.json")

	cfg, err := load(t, cwd, LoadOptions{Secrets: fakeSecrets{KeyAPIKey: "from-keychain"}})
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", cfg.APIKey)

	t.Setenv("INPUT_API_KEY", "from-env")
	cfg, err = load(t, cwd, LoadOptions{Secrets: fakeSecrets{KeyAPIKey: "from-keychain"}})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)

	t.Setenv("INPUT_API_KEY", "")
	_, err = load(t, cwd, LoadOptions{Secrets: fakeSecrets{}})
	assert.EqualError(t, err, "Input required and not supplied: api_key")
}

func TestLoad_Locale(t *testing.T) {
	tests := []struct {
		locale  string
		want    string
		wantErr bool
	}{
		{locale: "", want: "auto"},
		{locale: "AUTO", want: "auto"},
		{locale: "en", want: "en"},
		{locale: "pt-BR", want: "pt-BR"},
		{locale: "zh-Hant-TW", want: "zh-Hant-TW"},
		{locale: "not a locale", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			cwd := isolate(t)
			setRequired(t)
			t.Setenv("INPUT_LOCALE", tt.locale)

			cfg, err := load(t, cwd, LoadOptions{})
			if tt.wantErr {
				var cfgErr *uploaderrors.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, KeyLocale, cfgErr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Locale)
		})
	}
}

func TestLoad_InvalidOptionalInputs(t *testing.T) {
	tests := []struct {
		env     string
		value   string
		wantKey string
	}{
		{env: "INPUT_MODE", value: "tarball", wantKey: KeyMode},
		{env: "INPUT_BASE_URL", value: "not-a-url", wantKey: KeyBaseURL},
		{env: "INPUT_ARCHIVE_PATH", value: "/projects/zip", wantKey: KeyArchivePath},
		{env: "INPUT_RESOURCE_PATH", value: "/projects/resources", wantKey: KeyResourcePath},
		{env: "INPUT_MESSAGE_QUERY", value: ".[", wantKey: "message_query"},
		{env: "INPUT_TIMEOUT", value: "-5s", wantKey: KeyTimeout},
		{env: "INPUT_PUSHGATEWAY_URL", value: "pushgateway", wantKey: KeyPushgatewayURL},
		{env: "INPUT_TRACE_EXPORTER", value: "zipkin", wantKey: KeyTraceExporter},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cwd := isolate(t)
			setRequired(t)
			t.Setenv(tt.env, tt.value)

			_, err := load(t, cwd, LoadOptions{})
			var cfgErr *uploaderrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestLoad_EnvTypes(t *testing.T) {
	cwd := isolate(t)
	setRequired(t)
	t.Setenv("INPUT_TIMEOUT", "30s")
	t.Setenv("INPUT_DRY_RUN", "true")

	cfg, err := load(t, cwd, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.DryRun)
}

func TestRedacted(t *testing.T) {
	cfg := &Config{APIKey: "lh_abcdefgh1234", ProjectID: "p"}
	red := cfg.Redacted()
	assert.Equal(t, "...1234", red.APIKey)
	assert.Equal(t, "lh_abcdefgh1234", cfg.APIKey, "original must be unchanged")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "api-key", FlagName(KeyAPIKey))
	assert.Equal(t, "INPUT_WORKING_DIRECTORY", EnvName(KeyWorkingDirectory))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	cfg.APIKey, cfg.ProjectID, cfg.Files = "k", "p", "*.json"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModeZip, cfg.Mode)
	assert.Equal(t, "auto", cfg.Locale)
}

func TestLoad_SkipValidation(t *testing.T) {
	dir := isolate(t)
	cfg, err := load(t, dir, LoadOptions{SkipValidation: true})
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, ModeZip, cfg.Mode)
	assert.Equal(t, dir, cfg.WorkingDirectory)
}
