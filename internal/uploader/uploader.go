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

// Package uploader runs the upload pipeline: resolve files, optionally
// archive them, post them to Lingohub and report the outcome.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/lingohub-upload/internal/actions"
	"github.com/tombee/lingohub-upload/internal/archive"
	"github.com/tombee/lingohub-upload/internal/config"
	"github.com/tombee/lingohub-upload/internal/files"
	"github.com/tombee/lingohub-upload/internal/lingohub"
	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/internal/metrics"
	"github.com/tombee/lingohub-upload/internal/tracing"
	"github.com/tombee/lingohub-upload/pkg/errors"
	"github.com/tombee/lingohub-upload/pkg/httpclient"
)

// State is a step of the pipeline. Success and Failed are terminal.
type State string

const (
	StateStart         State = "start"
	StateConfigured    State = "configured"
	StateFilesResolved State = "files_resolved"
	StateArchived      State = "archived"
	StateUploaded      State = "uploaded"
	StateSuccess       State = "success"
	StateFailed        State = "failed"
)

// ErrNoReadableFiles is returned in files mode when every resolved file is
// inaccessible.
var ErrNoReadableFiles = errors.New("no readable files to upload")

// Client sends resources to Lingohub. *lingohub.Client implements it.
type Client interface {
	UploadArchive(ctx context.Context, projectID, name string, data []byte) (*lingohub.Response, error)
	UploadFile(ctx context.Context, projectID, path, locale string) (*lingohub.Response, error)
}

// Result is the outcome of one run.
type Result struct {
	// State is StateSuccess or StateFailed.
	State State

	// Reached is the last non-terminal state the run got to.
	Reached State

	// Target is what was (or would have been) uploaded: "resources.zip"
	// in zip mode, the file path in files mode.
	Target string

	// Files are the resolved paths, Uploaded the ones sent (or archived).
	Files    []string
	Uploaded []string

	// Skipped are files dropped because they could not be read.
	Skipped []*errors.FileAccessError

	// Bytes is the archive size in zip mode, the sum of file sizes in files
	// mode.
	Bytes int64

	Requests int
	Duration time.Duration
	DryRun   bool

	// Response is the last API response, if any.
	Response *lingohub.Response

	// Err is the single failure of the run.
	Err error
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.State == StateSuccess
}

// Options supplies collaborators. Zero values select working defaults.
type Options struct {
	// Client overrides the Lingohub client built from the configuration.
	Client Client

	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Tracer  trace.Tracer
	Actions *actions.Environment

	// RunID is sent as X-Correlation-ID.
	RunID string

	// UserAgent defaults to httpclient.DefaultConfig().UserAgent.
	UserAgent string

	// OnChunk observes archive output as it is produced.
	OnChunk func([]byte)
}

// Uploader executes one run for a configuration.
type Uploader struct {
	cfg  *config.Config
	opts Options

	logger *slog.Logger
	state  State
}

// New creates an Uploader. cfg is validated by Run.
func New(cfg *config.Config, opts Options) *Uploader {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRecorder()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer(tracing.InstrumentationName)
	}
	if opts.Actions == nil {
		opts.Actions = &actions.Environment{}
	}
	return &Uploader{
		cfg:    cfg,
		opts:   opts,
		logger: log.WithComponent(opts.Logger, "uploader"),
		state:  StateStart,
	}
}

// Run executes the pipeline once. Every failure is caught here and
// returned on Result.Err; nothing is retried.
func (u *Uploader) Run(ctx context.Context) *Result {
	start := time.Now()
	res := &Result{DryRun: u.cfg.DryRun}

	if u.opts.RunID != "" {
		ctx = httpclient.WithCorrelationID(ctx, u.opts.RunID)
	}
	ctx, span := u.opts.Tracer.Start(ctx, "lingohub.upload", trace.WithAttributes(
		tracing.ProjectAttr(u.cfg.ProjectID),
		tracing.ModeAttr(string(u.cfg.Mode)),
	))

	err := u.run(ctx, res)

	res.Duration = time.Since(start)
	res.Reached = u.state
	if err != nil {
		res.State = StateFailed
		res.Err = err
	} else {
		res.State = StateSuccess
	}
	u.state = res.State

	tracing.End(span, err)
	u.opts.Metrics.RecordRun(string(u.cfg.Mode), err == nil)
	u.report(res)

	return res
}

func (u *Uploader) run(ctx context.Context, res *Result) error {
	if err := u.cfg.Validate(); err != nil {
		return err
	}
	u.advance(StateConfigured)
	u.logger.Info("Using locale option: " + u.cfg.Locale)

	client, err := u.client()
	if err != nil {
		return err
	}

	set, err := u.resolve(ctx)
	if err != nil {
		return err
	}
	res.Files = set.Paths()
	u.advance(StateFilesResolved)

	if u.cfg.Mode == config.ModeFiles {
		return u.uploadFiles(ctx, client, res)
	}
	return u.uploadArchive(ctx, client, res)
}

func (u *Uploader) advance(s State) {
	u.logger.Debug("state transition", "from", string(u.state), "to", string(s))
	u.state = s
}

func (u *Uploader) client() (Client, error) {
	if u.opts.Client != nil {
		return u.opts.Client, nil
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = u.cfg.Timeout
	httpCfg.BearerToken = u.cfg.APIKey
	httpCfg.Logger = u.opts.Logger
	if u.opts.UserAgent != "" {
		httpCfg.UserAgent = u.opts.UserAgent
	}
	httpClient, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, err
	}

	return lingohub.New(lingohub.ClientConfig{
		BaseURL:      u.cfg.BaseURL,
		ArchivePath:  u.cfg.ArchivePath,
		ResourcePath: u.cfg.ResourcePath,
		MessageQuery: u.cfg.MessageQuery,
		Logger:       u.opts.Logger,
	}, httpClient)
}

func (u *Uploader) resolve(ctx context.Context) (*files.Set, error) {
	ctx, span := u.opts.Tracer.Start(ctx, "lingohub.resolve")
	start := time.Now()

	set, err := files.NewResolver(u.cfg.WorkingDirectory, u.opts.Logger).Resolve(ctx, u.cfg.Files)
	u.opts.Metrics.ObserveStage("resolve", time.Since(start))
	if set != nil {
		span.SetAttributes(tracing.FileCountAttr(set.Len()))
		u.opts.Metrics.RecordFiles(set.Len())
	}
	tracing.End(span, err)
	return set, err
}

func (u *Uploader) uploadArchive(ctx context.Context, client Client, res *Result) error {
	res.Target = archive.FileName

	actx, span := u.opts.Tracer.Start(ctx, "lingohub.archive")
	start := time.Now()
	builder := &archive.Builder{
		Root:    u.cfg.WorkingDirectory,
		OnChunk: u.opts.OnChunk,
		Logger:  u.opts.Logger,
	}
	arc, err := builder.Build(actx, res.Files)
	u.opts.Metrics.ObserveStage("archive", time.Since(start))
	if arc != nil {
		span.SetAttributes(tracing.FileCountAttr(len(arc.Entries)), tracing.BytesAttr(arc.Size()))
	}
	tracing.End(span, err)
	if err != nil {
		return err
	}

	res.Skipped = arc.Skipped
	for _, e := range arc.Entries {
		res.Uploaded = append(res.Uploaded, e.Path)
	}
	u.advance(StateArchived)

	if u.cfg.DryRun {
		res.Bytes = arc.Size()
		u.logger.Info(fmt.Sprintf("Dry run: skipping upload of %s (%d bytes)", archive.FileName, res.Bytes))
		return nil
	}

	return u.send(ctx, res, archive.FileName, arc.Size(), func(ctx context.Context) (*lingohub.Response, error) {
		return client.UploadArchive(ctx, u.cfg.ProjectID, archive.FileName, arc.Data)
	})
}

func (u *Uploader) uploadFiles(ctx context.Context, client Client, res *Result) error {
	type readable struct {
		path string
		size int64
	}

	var ok []readable
	for _, path := range res.Files {
		size, err := checkReadable(path)
		if err != nil {
			u.logger.Warn("Skipping inaccessible file "+path, slog.String(log.FileKey, path), log.Error(err))
			res.Skipped = append(res.Skipped, &errors.FileAccessError{Path: path, Cause: err})
			continue
		}
		ok = append(ok, readable{path: path, size: size})
	}
	if len(ok) == 0 {
		return ErrNoReadableFiles
	}

	if u.cfg.DryRun {
		for _, f := range ok {
			res.Bytes += f.size
			res.Uploaded = append(res.Uploaded, f.path)
			u.logger.Info(fmt.Sprintf("Dry run: skipping upload of %s (%d bytes)", f.path, f.size))
		}
		res.Target = ok[len(ok)-1].path
		return nil
	}

	for _, f := range ok {
		res.Target = f.path
		if u.cfg.Locale != lingohub.LocaleAuto {
			u.logger.Info("Using specified locale: " + u.cfg.Locale)
		} else {
			u.logger.Info("Using automatic locale detection")
		}
		err := u.send(ctx, res, f.path, f.size, func(ctx context.Context) (*lingohub.Response, error) {
			return client.UploadFile(ctx, u.cfg.ProjectID, f.path, u.cfg.Locale)
		})
		if err != nil {
			return err
		}
		res.Uploaded = append(res.Uploaded, f.path)
	}
	return nil
}

// send performs one upload request and logs its outcome.
func (u *Uploader) send(ctx context.Context, res *Result, target string, size int64, call func(context.Context) (*lingohub.Response, error)) error {
	ctx, span := u.opts.Tracer.Start(ctx, "lingohub.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.BytesAttr(size)),
	)

	u.logger.Info(fmt.Sprintf("Uploading %s...", target), slog.String(log.FileKey, target))
	start := time.Now()
	resp, err := call(ctx)
	elapsed := time.Since(start)

	res.Requests++
	res.Response = resp
	u.opts.Metrics.ObserveStage("upload", elapsed)

	code := 0
	if resp != nil {
		code = resp.StatusCode
		span.SetAttributes(tracing.StatusCodeAttr(code))
	}
	u.opts.Metrics.RecordRequest(code)
	tracing.End(span, err)

	if err != nil {
		if resp != nil {
			u.logger.Error("Response status: " + strconv.Itoa(resp.StatusCode))
			u.logger.Error("Response body: " + renderBody(resp))
		}
		return err
	}

	res.Bytes += size
	u.opts.Metrics.RecordBytes(size)
	u.advance(StateUploaded)
	u.logger.Info(fmt.Sprintf("Upload completed in %dms", elapsed.Milliseconds()),
		log.Duration(log.DurationKey, elapsed.Milliseconds()),
		slog.Int("status", resp.StatusCode))
	u.logger.Info(fmt.Sprintf("Successfully uploaded %s", target))
	return nil
}

// renderBody renders the response body compactly for the log.
func renderBody(resp *lingohub.Response) string {
	if resp.Data != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, resp.Body); err == nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(string(resp.Body))
}
