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

// Package lingohub is a minimal client for the Lingohub resource upload
// endpoints.
package lingohub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itchyny/gojq"

	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/pkg/errors"
)

const (
	// DefaultBaseURL is the public Lingohub API.
	DefaultBaseURL = "https://api.lingohub.com/v1"
	// DefaultArchivePath receives a zip of resource files.
	DefaultArchivePath = "/projects/{project_id}/resources/zip"
	// DefaultResourcePath receives a single resource file.
	DefaultResourcePath = "/projects/{project_id}/resources"
	// DefaultMessageQuery extracts the error message from a response body.
	DefaultMessageQuery = ".message"

	// ProjectPlaceholder is substituted with the escaped project ID.
	ProjectPlaceholder = "{project_id}"

	// LocaleAuto leaves locale detection to the server.
	LocaleAuto = "auto"
)

// Kind selects an upload endpoint.
type Kind string

const (
	// KindArchive uploads one zip containing every file.
	KindArchive Kind = "archive"
	// KindResource uploads one file.
	KindResource Kind = "resource"
)

// ClientConfig configures endpoints and response handling.
type ClientConfig struct {
	// BaseURL is prepended to the endpoint paths. Default: DefaultBaseURL
	BaseURL string

	// ArchivePath and ResourcePath are path templates containing
	// {project_id}. Defaults: DefaultArchivePath, DefaultResourcePath
	ArchivePath  string
	ResourcePath string

	// MessageQuery is a jq expression evaluated against a failed response
	// body to find the server's message. Default: DefaultMessageQuery
	MessageQuery string

	Logger *slog.Logger
}

// Client uploads resources to Lingohub.
type Client struct {
	http         *http.Client
	baseURL      string
	paths        map[Kind]string
	messageQuery *gojq.Code
	logger       *slog.Logger
}

// Response is a parsed API response.
type Response struct {
	StatusCode int
	// Status is the reason phrase, e.g. "Bad Request".
	Status string
	Body   []byte
	// Data is the JSON-decoded body, or nil when the body is not JSON.
	Data any
	// Duration is the wall time of the request, for logging only.
	Duration time.Duration
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a Client. httpClient is expected to add authentication.
func New(cfg ClientConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = DefaultArchivePath
	}
	if cfg.ResourcePath == "" {
		cfg.ResourcePath = DefaultResourcePath
	}
	if cfg.MessageQuery == "" {
		cfg.MessageQuery = DefaultMessageQuery
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}

	if err := ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	for _, p := range []string{cfg.ArchivePath, cfg.ResourcePath} {
		if err := ValidatePathTemplate(p); err != nil {
			return nil, err
		}
	}
	code, err := CompileMessageQuery(cfg.MessageQuery)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		paths: map[Kind]string{
			KindArchive:  cfg.ArchivePath,
			KindResource: cfg.ResourcePath,
		},
		messageQuery: code,
		logger:       cfg.Logger,
	}, nil
}

// URL returns the endpoint of kind for projectID.
func (c *Client) URL(kind Kind, projectID string) string {
	return ExpandURL(c.baseURL, c.paths[kind], projectID)
}

// UploadArchive posts data as a multipart field "file" named
// resources.zip with Content-Type application/zip.
func (c *Client) UploadArchive(ctx context.Context, projectID, name string, data []byte) (*Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(KindArchive, projectID), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, name)
}

// UploadFile streams the file at path as multipart field "file". A locale
// field is added unless locale is empty or "auto".
func (c *Client) UploadFile(ctx context.Context, projectID, path, locale string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.FileAccessError{Path: path, Cause: err}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		pw.CloseWithError(writeFileForm(mw, f, filepath.Base(path), locale))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(KindResource, projectID), pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, path)
}

func writeFileForm(mw *multipart.Writer, r io.Reader, filename, locale string) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	if locale != "" && locale != LocaleAuto {
		if err := mw.WriteField("locale", locale); err != nil {
			return err
		}
	}
	return mw.Close()
}

// do sends req and interprets the response. A non-2xx status yields both
// the Response and an *errors.APIError for target.
func (c *Client) do(req *http.Request, target string) (*Response, error) {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "upload %s", target)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response for %s", target)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     http.StatusText(httpResp.StatusCode),
		Body:       body,
		Duration:   time.Since(start),
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp.Data); err != nil {
			c.logger.Debug("response body is not JSON", "status", resp.StatusCode, log.Error(err))
			resp.Data = nil
		}
	}

	log.Trace(c.logger, "response received",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)))

	if resp.OK() {
		return resp, nil
	}

	return resp, &errors.APIError{
		Target:     target,
		StatusCode: resp.StatusCode,
		Message:    c.extractMessage(req.Context(), resp),
		Body:       body,
	}
}

// extractMessage runs the message query against the decoded body and
// returns the first non-empty result, falling back to the reason phrase.
func (c *Client) extractMessage(ctx context.Context, resp *Response) string {
	if resp.Data != nil {
		iter := c.messageQuery.RunWithContext(ctx, resp.Data)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				c.logger.Debug("message query failed", log.Error(err))
				break
			}
			switch msg := v.(type) {
			case string:
				if msg != "" {
					return msg
				}
			case nil:
			default:
				if b, err := json.Marshal(msg); err == nil {
					return string(b)
				}
			}
		}
	}
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// CompileMessageQuery parses and compiles a jq expression.
func CompileMessageQuery(q string) (*gojq.Code, error) {
	query, err := gojq.Parse(q)
	if err != nil {
		return nil, &errors.ConfigError{Key: "message_query", Reason: err.Error(), Cause: err}
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &errors.ConfigError{Key: "message_query", Reason: err.Error(), Cause: err}
	}
	return code, nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &errors.ConfigError{Key: "base_url", Reason: err.Error(), Cause: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &errors.ConfigError{Key: "base_url", Reason: "must be an absolute http or https URL"}
	}
	return nil
}

// ValidatePathTemplate checks that tmpl is a path containing {project_id}.
func ValidatePathTemplate(tmpl string) error {
	if !strings.HasPrefix(tmpl, "/") {
		return &errors.ConfigError{Key: "endpoint", Reason: fmt.Sprintf("path %q must start with /", tmpl)}
	}
	if !strings.Contains(tmpl, ProjectPlaceholder) {
		return &errors.ConfigError{Key: "endpoint", Reason: fmt.Sprintf("path %q must contain %s", tmpl, ProjectPlaceholder)}
	}
	return nil
}

// ExpandURL joins baseURL and the path template with projectID
// path-escaped into it.
func ExpandURL(baseURL, tmpl, projectID string) string {
	return strings.TrimRight(baseURL, "/") + strings.ReplaceAll(tmpl, ProjectPlaceholder, url.PathEscape(projectID))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
