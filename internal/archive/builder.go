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

// Package archive bundles resolved files into a single in-memory zip.
//
// The zip writer runs on its own goroutine and streams into an io.Pipe.
// The caller drains the pipe into a Sink and then blocks on Sink.Done, so
// the archive is only considered complete once every compressed byte has
// been received.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/tombee/lingohub-upload/internal/files"
	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/pkg/errors"
)

// FileName is the name the archive is uploaded under.
const FileName = "resources.zip"

// DefaultLimit caps the in-memory archive size.
const DefaultLimit int64 = 256 << 20

// ErrNoEntries is the cause of the ArchiveError returned when every file
// was skipped.
var ErrNoEntries = errors.New("no readable files to archive")

var errNotRegular = errors.New("not a regular file")

// Entry is one file stored in the archive.
type Entry struct {
	// Name is the slash-separated path inside the archive.
	Name string
	// Path is the file on disk.
	Path string
	// Size is the uncompressed size in bytes.
	Size int64
}

// Archive is a finished in-memory zip.
type Archive struct {
	Data    []byte
	Entries []Entry
	// Skipped lists files that could not be read. They are warnings, not
	// failures.
	Skipped []*errors.FileAccessError
	// Chunks is how many writes the compressed stream arrived in.
	Chunks int
}

// Size returns the compressed size in bytes.
func (a *Archive) Size() int64 {
	return int64(len(a.Data))
}

// Builder creates archives. The zero value is usable and archives
// relative to the process working directory.
type Builder struct {
	// Root is the directory entry names are made relative to.
	Root string

	// Level is the deflate level. Zero selects flate.DefaultCompression.
	Level int

	// Limit is the maximum archive size. Zero selects DefaultLimit.
	Limit int64

	// OnChunk observes compressed output in arrival order.
	OnChunk func([]byte)

	Logger *slog.Logger
}

type producerResult struct {
	entries []Entry
	skipped []*errors.FileAccessError
	err     error
}

// Build compresses paths into an Archive. Unreadable files are skipped with
// a warning. Any failure of the compression stream is returned as
// *errors.ArchiveError.
func (b *Builder) Build(ctx context.Context, paths []string) (*Archive, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.Discard()
	}
	root := b.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &errors.ArchiveError{Op: "init", Cause: err}
		}
		root = wd
	}
	limit := b.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	pr, pw := io.Pipe()
	sink := NewSink(limit, b.OnChunk)
	produced := make(chan producerResult, 1)

	go func() {
		res := b.produce(ctx, pw, root, paths, logger)
		// Closing the write end is what ends the drain below.
		_ = pw.CloseWithError(res.err)
		produced <- res
	}()

	if _, err := io.Copy(sink, pr); err != nil {
		_ = pr.CloseWithError(err)
		_ = sink.CloseWithError(err)
	} else {
		_ = sink.Close()
	}

	result := <-sink.Done()
	prod := <-produced

	for _, skipped := range prod.skipped {
		logger.Warn(fmt.Sprintf("Skipping file that cannot be read: %s", files.Rel(root, skipped.Path)),
			slog.String(log.FileKey, files.Rel(root, skipped.Path)),
			log.Error(skipped.Cause))
	}

	if prod.err != nil {
		return nil, asArchiveError("write", prod.err)
	}
	if result.Err != nil {
		return nil, asArchiveError("drain", result.Err)
	}
	if len(prod.entries) == 0 {
		return nil, &errors.ArchiveError{Op: "build", Cause: ErrNoEntries}
	}

	arc := &Archive{
		Data:    result.Data,
		Entries: prod.entries,
		Skipped: prod.skipped,
		Chunks:  result.Chunks,
	}
	logger.Info(fmt.Sprintf("Archive created: %d file(s), %d bytes", len(arc.Entries), arc.Size()),
		"entries", len(arc.Entries),
		"bytes", arc.Size(),
		"chunks", arc.Chunks,
	)
	return arc, nil
}

// produce writes the zip stream to w. It runs on its own goroutine.
func (b *Builder) produce(ctx context.Context, w io.Writer, root string, paths []string, logger *slog.Logger) producerResult {
	var res producerResult

	level := b.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			res.err = err
			return res
		}

		f, info, err := openReadable(path)
		if err != nil {
			res.skipped = append(res.skipped, &errors.FileAccessError{Path: path, Cause: err})
			continue
		}

		entry := Entry{Name: files.Rel(root, path), Path: path, Size: info.Size()}
		logger.Debug("adding file to archive", "name", entry.Name, "bytes", entry.Size)

		err = addEntry(zw, f, info, entry.Name)
		f.Close()
		if err != nil {
			_ = zw.Close()
			res.err = &errors.ArchiveError{Op: "write", Path: path, Cause: err}
			return res
		}
		res.entries = append(res.entries, entry)
	}

	if err := zw.Close(); err != nil {
		res.err = &errors.ArchiveError{Op: "close", Cause: err}
	}
	return res
}

func openReadable(path string) (*os.File, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, errNotRegular
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

func addEntry(zw *zip.Writer, r io.Reader, info os.FileInfo, name string) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func asArchiveError(op string, err error) error {
	var archiveErr *errors.ArchiveError
	if errors.As(err, &archiveErr) {
		return archiveErr
	}
	return &errors.ArchiveError{Op: op, Cause: err}
}
