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

// Package httpclient builds the HTTP client used to talk to the Lingohub API.
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.BearerToken = apiKey
//	client, err := httpclient.New(cfg)
//
// # Transport layers
//
// Requests pass through, outermost first:
//   - oauth2.Transport: sets "Authorization: Bearer <token>" when BearerToken is set
//   - logging transport: sets User-Agent, X-Correlation-ID, logs the outcome
//   - http.Transport: TLS 1.2 minimum, pooled connections
//
// There is no retry layer. A failed upload is reported once and never
// repeated.
//
// # Security
//
//   - Sensitive query parameters (api_key, token, password, etc.) are redacted from logs
//   - Authorization headers are never logged
//   - TLS 1.2 minimum with certificate validation enabled
//
// # Observability
//
// Requests are logged with method, sanitized url, status and duration_ms.
// Successful requests log at debug, 4xx/5xx and transport errors at warn.
package httpclient
