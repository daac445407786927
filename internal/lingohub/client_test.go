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

package lingohub

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/lingohub-upload/pkg/errors"
	"github.com/tombee/lingohub-upload/pkg/httpclient"
)

type capturedRequest struct {
	method      string
	path        string
	accept      string
	auth        string
	fields      map[string]string
	fileName    string
	fileType    string
	fileContent string
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.EscapedPath()
		captured.accept = r.Header.Get("Accept")
		captured.auth = r.Header.Get("Authorization")
		captured.fields = map[string]string{}

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if !assert.NoError(t, err) || !assert.Equal(t, "multipart/form-data", mediaType) {
			return
		}

		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				return
			}
			data, err := io.ReadAll(part)
			if !assert.NoError(t, err) {
				return
			}
			if part.FormName() == "file" {
				captured.fileName = part.FileName()
				captured.fileType = part.Header.Get("Content-Type")
				captured.fileContent = string(data)
				continue
			}
			captured.fields[part.FormName()] = string(data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func newTestClient(t *testing.T, baseURL string, cfg ClientConfig) *Client {
	t.Helper()
	httpCfg := httpclient.DefaultConfig()
	httpCfg.BearerToken = "test-api-key"
	hc, err := httpclient.New(httpCfg)
	require.NoError(t, err)

	cfg.BaseURL = baseURL
	c, err := New(cfg, hc)
	require.NoError(t, err)
	return c
}

func TestUploadArchive_Success(t *testing.T) {
	var got capturedRequest
	server := newTestServer(t, http.StatusOK, `{"success":true}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL+"/v1", ClientConfig{})
	resp, err := c.UploadArchive(context.Background(), "test-project-id", "resources.zip", []byte("PK\x03\x04zip"))
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, map[string]any{"success": true}, resp.Data)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v1/projects/test-project-id/resources/zip", got.path)
	assert.Equal(t, "Bearer test-api-key", got.auth)
	assert.Equal(t, "application/json", got.accept)
	assert.Equal(t, "resources.zip", got.fileName)
	assert.Equal(t, "application/zip", got.fileType)
	assert.Equal(t, "PK\x03\x04zip", got.fileContent)
	assert.Empty(t, got.fields)
}

func TestUploadArchive_APIError(t *testing.T) {
	var got capturedRequest
	server := newTestServer(t, http.StatusBadRequest, `{"message":"Invalid project ID"}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL, ClientConfig{})
	resp, err := c.UploadArchive(context.Background(), "bad", "resources.zip", []byte("zip"))
	require.Error(t, err)
	require.NotNil(t, resp)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid project ID", apiErr.Message)
	assert.Equal(t, "Failed to upload resources.zip: Invalid project ID", err.Error())
	assert.JSONEq(t, `{"message":"Invalid project ID"}`, string(apiErr.Body))
}

func TestUploadArchive_FallsBackToReasonPhrase(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no message field", body: `{"errors":[]}`},
		{name: "empty body", body: ``},
		{name: "html body", body: `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capturedRequest
			server := newTestServer(t, http.StatusBadGateway, tt.body, &got)
			defer server.Close()

			c := newTestClient(t, server.URL, ClientConfig{})
			_, err := c.UploadArchive(context.Background(), "p", "resources.zip", []byte("zip"))
			assert.EqualError(t, err, "Failed to upload resources.zip: Bad Gateway")
		})
	}
}

func TestUploadArchive_CustomMessageQuery(t *testing.T) {
	var got capturedRequest
	server := newTestServer(t, http.StatusUnprocessableEntity, `{"error":{"detail":"locale unknown"}}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL, ClientConfig{MessageQuery: ".message // .error.detail"})
	_, err := c.UploadArchive(context.Background(), "p", "resources.zip", []byte("zip"))
	assert.EqualError(t, err, "Failed to upload resources.zip: locale unknown")
}

func TestUploadFile_Locale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hello":"Hello"}`), 0o644))

	tests := []struct {
		name       string
		locale     string
		wantFields map[string]string
	}{
		{name: "auto omits locale", locale: "auto", wantFields: map[string]string{}},
		{name: "empty omits locale", locale: "", wantFields: map[string]string{}},
		{name: "explicit locale", locale: "en", wantFields: map[string]string{"locale": "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capturedRequest
			server := newTestServer(t, http.StatusCreated, `{"success":true}`, &got)
			defer server.Close()

			c := newTestClient(t, server.URL, ClientConfig{})
			resp, err := c.UploadFile(context.Background(), "proj", path, tt.locale)
			require.NoError(t, err)
			assert.True(t, resp.OK())

			assert.Equal(t, "/projects/proj/resources", got.path)
			assert.Equal(t, "en.json", got.fileName)
			assert.Equal(t, `{"hello":"Hello"}`, got.fileContent)
			assert.Equal(t, tt.wantFields, got.fields)
		})
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	c := newTestClient(t, "https://example.invalid", ClientConfig{})
	_, err := c.UploadFile(context.Background(), "proj", filepath.Join(t.TempDir(), "nope.json"), "auto")

	var accessErr *errors.FileAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url, ClientConfig{})
	_, err := c.UploadArchive(context.Background(), "p", "resources.zip", []byte("zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload resources.zip")
}

func TestURL(t *testing.T) {
	c := newTestClient(t, "https://api.example.com/v2/", ClientConfig{
		ArchivePath:  "/workspaces/acme/projects/{project_id}/resources/zip",
		ResourcePath: "/projects/{project_id}/resources",
	})

	assert.Equal(t, "https://api.example.com/v2/workspaces/acme/projects/a%2Fb/resources/zip", c.URL(KindArchive, "a/b"))
	assert.Equal(t, "https://api.example.com/v2/projects/p1/resources", c.URL(KindResource, "p1"))
}

func TestNew_Validation(t *testing.T) {
	hc := &http.Client{}
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantKey string
	}{
		{name: "relative base url", cfg: ClientConfig{BaseURL: "api.lingohub.com"}, wantKey: "base_url"},
		{name: "ftp base url", cfg: ClientConfig{BaseURL: "ftp://api.lingohub.com"}, wantKey: "base_url"},
		{name: "missing placeholder", cfg: ClientConfig{ArchivePath: "/projects/resources/zip"}, wantKey: "endpoint"},
		{name: "relative path", cfg: ClientConfig{ResourcePath: "projects/{project_id}"}, wantKey: "endpoint"},
		{name: "bad jq", cfg: ClientConfig{MessageQuery: ".message |"}, wantKey: "message_query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, hc)
			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}

	_, err := New(ClientConfig{}, nil)
	assert.Error(t, err)
}
