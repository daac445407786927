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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tombee/lingohub-upload/internal/lingohub"
	"github.com/tombee/lingohub-upload/internal/log"
	uploaderrors "github.com/tombee/lingohub-upload/pkg/errors"
)

// Input names. They double as YAML keys, and map to INPUT_<NAME> and
// LINGOHUB_<NAME> environment variables and --<name-with-dashes> flags.
const (
	KeyAPIKey           = "api_key"
	KeyProjectID        = "project_id"
	KeyFiles            = "files"
	KeyLocale           = "locale"
	KeyMode             = "mode"
	KeyBaseURL          = "base_url"
	KeyArchivePath      = "archive_path"
	KeyResourcePath     = "resource_path"
	KeyWorkingDirectory = "working_directory"
	KeyMessageQuery     = "message_query"
	KeyTimeout          = "timeout"
	KeyDryRun           = "dry_run"
	KeyPushgatewayURL   = "pushgateway_url"
	KeyTraceExporter    = "trace_exporter"
	KeyOTLPEndpoint     = "otlp_endpoint"
)

// Mode selects how files are sent.
type Mode string

const (
	// ModeZip bundles every file into resources.zip and uploads it once.
	ModeZip Mode = "zip"
	// ModeFiles uploads each file with its own request.
	ModeFiles Mode = "files"
)

// DefaultFileNames are looked up in the working directory when no config
// file is given explicitly, before the per-user file from UserConfigPath.
var DefaultFileNames = []string{".lingohub.yaml", ".lingohub.yml"}

// Config is the immutable input of one upload run.
type Config struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	ProjectID string `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	// Files is the pattern string exactly as supplied.
	Files  string `mapstructure:"files" yaml:"files" json:"files"`
	Locale string `mapstructure:"locale" yaml:"locale" json:"locale"`

	Mode             Mode          `mapstructure:"mode" yaml:"mode" json:"mode"`
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	ArchivePath      string        `mapstructure:"archive_path" yaml:"archive_path" json:"archive_path"`
	ResourcePath     string        `mapstructure:"resource_path" yaml:"resource_path" json:"resource_path"`
	WorkingDirectory string        `mapstructure:"working_directory" yaml:"working_directory" json:"working_directory"`
	MessageQuery     string        `mapstructure:"message_query" yaml:"message_query" json:"message_query"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	DryRun           bool          `mapstructure:"dry_run" yaml:"dry_run" json:"dry_run"`

	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url,omitempty" json:"pushgateway_url,omitempty"`
	TraceExporter  string `mapstructure:"trace_exporter" yaml:"trace_exporter,omitempty" json:"trace_exporter,omitempty"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint,omitempty" json:"otlp_endpoint,omitempty"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-" yaml:"-" json:"-"`
}

// SecretSource looks up a stored secret. The keychain backend implements it.
type SecretSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// LoadOptions controls where Load looks for values.
type LoadOptions struct {
	// ConfigPath is an explicit config file. It must exist.
	ConfigPath string

	// Flags are consulted first; only flags the user changed take effect.
	Flags *pflag.FlagSet

	// Secrets is the fallback for api_key.
	Secrets SecretSource

	// Getwd overrides os.Getwd, for tests.
	Getwd func() (string, error)

	// SkipValidation returns the merged values even when they are
	// incomplete, for display.
	SkipValidation bool
}

// defaults holds the value of every optional input.
var defaults = map[string]any{
	KeyLocale:        lingohub.LocaleAuto,
	KeyMode:          string(ModeZip),
	KeyBaseURL:       lingohub.DefaultBaseURL,
	KeyArchivePath:   lingohub.DefaultArchivePath,
	KeyResourcePath:  lingohub.DefaultResourcePath,
	KeyMessageQuery:  lingohub.DefaultMessageQuery,
	KeyTimeout:       time.Duration(0),
	KeyDryRun:        false,
	KeyTraceExporter: "",
}

// Default returns a Config holding only default values. Required inputs
// are left empty.
func Default() *Config {
	return &Config{
		Locale:       lingohub.LocaleAuto,
		Mode:         ModeZip,
		BaseURL:      lingohub.DefaultBaseURL,
		ArchivePath:  lingohub.DefaultArchivePath,
		ResourcePath: lingohub.DefaultResourcePath,
		MessageQuery: lingohub.DefaultMessageQuery,
	}
}

// Keys lists every input in the order they are documented.
var Keys = []string{
	KeyAPIKey, KeyProjectID, KeyFiles, KeyLocale, KeyMode,
	KeyBaseURL, KeyArchivePath, KeyResourcePath, KeyWorkingDirectory,
	KeyMessageQuery, KeyTimeout, KeyDryRun,
	KeyPushgatewayURL, KeyTraceExporter, KeyOTLPEndpoint,
}

// Load resolves every input. Precedence, highest first: changed flag,
// INPUT_<KEY>, LINGOHUB_<KEY>, config file, keychain (api_key only),
// default.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	getwd := opts.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	cwd, err := getwd()
	if err != nil {
		return nil, &uploaderrors.ConfigError{Reason: "cannot determine working directory", Cause: err}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range Keys {
		if err := v.BindEnv(key, EnvName(key), "LINGOHUB_"+strings.ToUpper(key)); err != nil {
			return nil, &uploaderrors.ConfigError{Key: key, Reason: err.Error(), Cause: err}
		}
		if opts.Flags != nil {
			if f := opts.Flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, &uploaderrors.ConfigError{Key: key, Reason: err.Error(), Cause: err}
				}
			}
		}
	}

	configFile, err := findConfigFile(opts.ConfigPath, cwd)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &uploaderrors.ConfigError{Reason: fmt.Sprintf("reading %s: %v", configFile, err), Cause: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &uploaderrors.ConfigError{Reason: err.Error(), Cause: err}
	}
	cfg.ConfigFile = configFile
	cfg.normalize()

	if cfg.APIKey == "" && opts.Secrets != nil {
		if key, err := opts.Secrets.Get(ctx, KeyAPIKey); err == nil {
			cfg.APIKey = strings.TrimSpace(key)
		}
	}

	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = cwd
	} else if !filepath.IsAbs(cfg.WorkingDirectory) {
		cfg.WorkingDirectory = filepath.Join(cwd, cfg.WorkingDirectory)
	}

	if opts.SkipValidation {
		return &cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Files = strings.TrimSpace(c.Files)
	c.Locale = strings.TrimSpace(c.Locale)
	if c.Locale == "" || strings.EqualFold(c.Locale, lingohub.LocaleAuto) {
		c.Locale = lingohub.LocaleAuto
	}
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	if c.Mode == "" {
		c.Mode = ModeZip
	}
	c.WorkingDirectory = strings.TrimSpace(c.WorkingDirectory)
	c.TraceExporter = strings.ToLower(strings.TrimSpace(c.TraceExporter))
}

func findConfigFile(explicit, cwd string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &uploaderrors.ConfigError{Reason: fmt.Sprintf("config file %s not readable", explicit), Cause: err}
		}
		return explicit, nil
	}
	candidates := make([]string, 0, len(DefaultFileNames)+1)
	for _, name := range DefaultFileNames {
		candidates = append(candidates, filepath.Join(cwd, name))
	}
	if userPath, err := UserConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", &uploaderrors.ConfigError{Reason: fmt.Sprintf("config file %s not readable", path), Cause: err}
		}
	}
	return "", nil
}

// Redacted returns a copy with the API key masked, safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = log.SanitizeAPIKey(out.APIKey)
	}
	return out
}

// FlagName returns the command-line flag for an input key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// EnvName returns the GitHub Actions environment variable for an input.
func EnvName(key string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(key, " ", "_"))
}

// RegisterFlags defines one flag per input on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagName(KeyAPIKey), "", "Lingohub API token (prefer INPUT_API_KEY or `lingohub-upload login`)")
	fs.String(FlagName(KeyProjectID), "", "Lingohub project identifier")
	fs.String(FlagName(KeyFiles), "", "Comma-separated glob pattern(s) of files to upload")
	fs.String(FlagName(KeyLocale), "", "Locale of the uploaded files in files mode (default \"auto\")")
	fs.String(FlagName(KeyMode), "", "Upload mode: zip or files (default \"zip\")")
	fs.String(FlagName(KeyBaseURL), "", "API base URL (default \""+lingohub.DefaultBaseURL+"\")")
	fs.String(FlagName(KeyArchivePath), "", "Archive endpoint path template (default \""+lingohub.DefaultArchivePath+"\")")
	fs.String(FlagName(KeyResourcePath), "", "Single-file endpoint path template (default \""+lingohub.DefaultResourcePath+"\")")
	fs.String(FlagName(KeyWorkingDirectory), "", "Directory patterns and archive paths are relative to (default: current directory)")
	fs.String(FlagName(KeyMessageQuery), "", "jq expression selecting the error message from a failed response (default \".message\")")
	fs.Duration(FlagName(KeyTimeout), 0, "Request timeout; 0 leaves it to the transport")
	fs.Bool(FlagName(KeyDryRun), false, "Resolve and archive files without uploading")
	fs.String(FlagName(KeyPushgatewayURL), "", "Prometheus Pushgateway to push run metrics to")
	fs.String(FlagName(KeyTraceExporter), "", "Trace exporter: otlp-http, otlp-grpc, console, or empty to disable")
	fs.String(FlagName(KeyOTLPEndpoint), "", "OTLP collector endpoint, a URL or host:port")
}
