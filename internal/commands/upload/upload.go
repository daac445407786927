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

// Package upload implements the upload command.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/lingohub-upload/internal/actions"
	"github.com/tombee/lingohub-upload/internal/commands/shared"
	"github.com/tombee/lingohub-upload/internal/config"
	"github.com/tombee/lingohub-upload/internal/files"
	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/internal/metrics"
	"github.com/tombee/lingohub-upload/internal/secrets"
	"github.com/tombee/lingohub-upload/internal/tracing"
	"github.com/tombee/lingohub-upload/internal/uploader"
	pkgerrors "github.com/tombee/lingohub-upload/pkg/errors"
)

// shutdownTimeout bounds flushing spans and pushing metrics after a run.
const shutdownTimeout = 10 * time.Second

// NewCommand creates the upload command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload resource files to Lingohub",
		Long: `Upload resource files to a Lingohub project.

Files are selected with comma-separated glob patterns (doublestar syntax,
"!" excludes). In zip mode, the default, they are bundled into
resources.zip and sent in one request; in files mode each file is sent
on its own.

Every input can be given as a flag, as INPUT_<NAME> (GitHub Actions),
as LINGOHUB_<NAME>, or in a .lingohub.yaml file. The API key may also
come from the system keychain (see 'lingohub-upload login').`,
		Example: `  lingohub-upload upload --project-id my-project --files 'locales/**/*.json'
  lingohub-upload upload --mode files --locale de --files 'de/*.yaml,!de/draft.yaml'
  lingohub-upload upload --dry-run`,
		Args: cobra.NoArgs,
		RunE: runUpload,
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runUpload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := shared.NewLogger(cmd.ErrOrStderr())

	cfg, err := config.Load(ctx, config.LoadOptions{
		ConfigPath: shared.GetConfigPath(),
		Flags:      cmd.Flags(),
		Secrets:    secrets.NewKeychainBackend(""),
	})
	if err != nil {
		return shared.ExitErrorFor(err)
	}

	env := actions.FromEnv()
	env.AddMask(cmd.OutOrStdout(), cfg.APIKey)

	runID := uuid.NewString()
	logger = log.WithRunContext(logger, runID, cfg.ProjectID)
	logger.Debug("configuration loaded",
		"config_file", cfg.ConfigFile,
		"mode", string(cfg.Mode),
		"api_key", log.SanitizeAPIKey(cfg.APIKey))

	version, _, _ := shared.GetVersion()
	provider, err := tracing.New(ctx, tracing.Config{
		Exporter:       cfg.TraceExporter,
		Endpoint:       cfg.OTLPEndpoint,
		ServiceVersion: version,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return shared.ExitErrorFor(&pkgerrors.ConfigError{Key: config.KeyTraceExporter, Reason: err.Error(), Cause: err})
	}

	recorder := metrics.NewRecorder()
	res := uploader.New(cfg, uploader.Options{
		Logger:    logger,
		Metrics:   recorder,
		Tracer:    provider.Tracer(),
		Actions:   env,
		RunID:     runID,
		UserAgent: shared.UserAgent(),
	}).Run(ctx)

	flush(ctx, cfg, provider, recorder, logger)

	if err := printResult(cmd.OutOrStdout(), cfg, res); err != nil {
		logger.Warn("failed to write result", log.Error(err))
	}

	if res.Err != nil {
		return shared.ExitErrorFor(res.Err)
	}
	return nil
}

// flush exports spans and pushes metrics. Failures are warnings only.
func flush(ctx context.Context, cfg *config.Config, provider *tracing.Provider, recorder *metrics.Recorder, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", log.Error(err))
	}
	if cfg.PushgatewayURL != "" {
		if err := recorder.Push(ctx, cfg.PushgatewayURL, cfg.ProjectID); err != nil {
			logger.Warn("failed to push metrics", log.Error(err))
		}
	}
}

// resultJSON is the --json rendering of a run.
type resultJSON struct {
	shared.JSONResponse
	Status     string   `json:"status"`
	Mode       string   `json:"mode"`
	DryRun     bool     `json:"dry_run,omitempty"`
	Target     string   `json:"target,omitempty"`
	Files      []string `json:"files"`
	Skipped    []string `json:"skipped,omitempty"`
	Bytes      int64    `json:"bytes"`
	Requests   int      `json:"requests"`
	DurationMS int64    `json:"duration_ms"`
	HTTPStatus int      `json:"http_status,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// printResult writes the run result to stdout. A successful upload is
// silent unless --json is set; a dry run lists what would be sent.
func printResult(w io.Writer, cfg *config.Config, res *uploader.Result) error {
	if shared.GetJSON() {
		out := resultJSON{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "upload", Success: res.OK()},
			Status:       string(res.State),
			Mode:         string(cfg.Mode),
			DryRun:       res.DryRun,
			Target:       res.Target,
			Files:        relPaths(cfg.WorkingDirectory, res.Uploaded),
			Bytes:        res.Bytes,
			Requests:     res.Requests,
			DurationMS:   res.Duration.Milliseconds(),
		}
		if out.Files == nil {
			out.Files = []string{}
		}
		for _, s := range res.Skipped {
			out.Skipped = append(out.Skipped, files.Rel(cfg.WorkingDirectory, s.Path))
		}
		if res.Response != nil {
			out.HTTPStatus = res.Response.StatusCode
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		return shared.EmitJSON(w, out)
	}

	if !res.DryRun || !res.OK() || shared.GetQuiet() {
		return nil
	}

	fmt.Fprintln(w, shared.Header.Render("Dry run: nothing was uploaded"))
	if cfg.Mode == config.ModeZip {
		fmt.Fprintf(w, "%s %s (%d bytes)\n", shared.RenderLabel("archive:"), res.Target, res.Bytes)
	}
	for _, path := range res.Uploaded {
		fmt.Fprintln(w, shared.RenderOK(files.Rel(cfg.WorkingDirectory, path)))
	}
	for _, s := range res.Skipped {
		fmt.Fprintln(w, shared.RenderWarn(files.Rel(cfg.WorkingDirectory, s.Path)+" (unreadable)"))
	}
	return nil
}

func relPaths(root string, paths []string) []string {
	var out []string
	for _, p := range paths {
		out = append(out, files.Rel(root, p))
	}
	return out
}
