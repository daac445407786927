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
	"fmt"
	"net/url"

	"golang.org/x/text/language"

	"github.com/tombee/lingohub-upload/internal/lingohub"
	uploaderrors "github.com/tombee/lingohub-upload/pkg/errors"
)

// TraceExporters lists the accepted trace_exporter values.
var TraceExporters = []string{"", "none", "otlp-http", "otlp-grpc", "console"}

// Validate checks required inputs, in the order api_key, project_id, files,
// and then the optional ones.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{KeyAPIKey, c.APIKey},
		{KeyProjectID, c.ProjectID},
		{KeyFiles, c.Files},
	}
	for _, r := range required {
		if r.value == "" {
			return &uploaderrors.ConfigError{Key: r.key}
		}
	}

	if err := ValidateLocale(c.Locale); err != nil {
		return err
	}

	switch c.Mode {
	case ModeZip, ModeFiles:
	default:
		return &uploaderrors.ConfigError{Key: KeyMode, Reason: fmt.Sprintf("%q is not one of zip, files", c.Mode)}
	}

	if err := lingohub.ValidateBaseURL(c.BaseURL); err != nil {
		return err
	}
	for key, tmpl := range map[string]string{KeyArchivePath: c.ArchivePath, KeyResourcePath: c.ResourcePath} {
		if err := lingohub.ValidatePathTemplate(tmpl); err != nil {
			var cfgErr *uploaderrors.ConfigError
			if uploaderrors.As(err, &cfgErr) {
				cfgErr.Key = key
			}
			return err
		}
	}
	if _, err := lingohub.CompileMessageQuery(c.MessageQuery); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return &uploaderrors.ConfigError{Key: KeyTimeout, Reason: "must not be negative"}
	}

	if c.PushgatewayURL != "" {
		if u, err := url.Parse(c.PushgatewayURL); err != nil || u.Host == "" {
			return &uploaderrors.ConfigError{Key: KeyPushgatewayURL, Reason: "must be an absolute URL", Cause: err}
		}
	}

	valid := false
	for _, e := range TraceExporters {
		if c.TraceExporter == e {
			valid = true
			break
		}
	}
	if !valid {
		return &uploaderrors.ConfigError{Key: KeyTraceExporter, Reason: fmt.Sprintf("%q is not one of otlp-http, otlp-grpc, console", c.TraceExporter)}
	}

	return nil
}

// ValidateLocale accepts "auto" or any well-formed BCP 47 tag.
func ValidateLocale(locale string) error {
	if locale == lingohub.LocaleAuto {
		return nil
	}
	if _, err := language.Parse(locale); err != nil {
		return &uploaderrors.ConfigError{Key: KeyLocale, Reason: fmt.Sprintf("%q is not a valid locale tag", locale), Cause: err}
	}
	return nil
}
