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

// Package files turns the comma-separated pattern input into the ordered
// set of files to upload.
package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/lingohub-upload/internal/log"
	"github.com/tombee/lingohub-upload/pkg/errors"
)

// Resolver expands glob patterns relative to a root directory.
type Resolver struct {
	// Root is the directory relative patterns are evaluated against.
	// Defaults to the process working directory.
	Root string

	Logger *slog.Logger
}

// NewResolver creates a Resolver rooted at root.
func NewResolver(root string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = log.Discard()
	}
	return &Resolver{Root: root, Logger: logger}
}

// Resolve splits patterns, expands each one in order and merges the
// matches, keeping first-seen order and dropping duplicates. Patterns
// starting with "!" remove matching files from the result. Returned paths
// are absolute.
//
// An empty result is reported as *errors.NoFilesError carrying patterns
// exactly as given.
func (r *Resolver) Resolve(ctx context.Context, patterns string) (*Set, error) {
	root, err := r.root()
	if err != nil {
		return nil, err
	}

	set := NewSet()
	var excludes []glob

	for _, pattern := range SplitPatterns(patterns) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if strings.HasPrefix(pattern, "!") {
			excludes = append(excludes, compile(root, strings.TrimPrefix(pattern, "!")))
			continue
		}

		r.Logger.Info(fmt.Sprintf("Processing pattern: %s", pattern))

		matches, err := compile(root, pattern).expand()
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
		}

		added := 0
		for _, m := range matches {
			if set.Add(m) {
				added++
			}
		}
		r.Logger.Debug("pattern expanded", "pattern", pattern, "matches", len(matches), "new", added)
	}

	if len(excludes) > 0 {
		set = set.Filter(func(p string) bool {
			for _, ex := range excludes {
				if ex.match(p) {
					return false
				}
			}
			return true
		})
	}

	if set.Len() == 0 {
		return nil, &errors.NoFilesError{Pattern: patterns}
	}

	r.Logger.Info(fmt.Sprintf("Found %d file(s) to upload", set.Len()))
	return set, nil
}

func (r *Resolver) root() (string, error) {
	if r.Root != "" {
		return filepath.Abs(r.Root)
	}
	return os.Getwd()
}

// glob is a pattern split into a literal base directory and the part
// holding meta characters. Only the pattern text is interpreted as glob
// syntax, so brackets or braces in the root directory are matched literally.
type glob struct {
	dir     string
	pattern string
}

func compile(root, pattern string) glob {
	base, rest := doublestar.SplitPattern(path.Clean(filepath.ToSlash(pattern)))
	dir := filepath.FromSlash(base)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return glob{dir: filepath.Clean(dir), pattern: rest}
}

// expand returns the regular files matching g as absolute paths, sorted.
func (g glob) expand() ([]string, error) {
	if !doublestar.ValidatePattern(g.pattern) {
		return nil, doublestar.ErrBadPattern
	}

	matches, err := doublestar.Glob(os.DirFS(g.dir), g.pattern)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		p := filepath.Join(g.dir, filepath.FromSlash(m))
		info, err := os.Stat(p)
		// Unreadable entries stay in the set; the archive step reports them.
		if err == nil && info.IsDir() {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

func (g glob) match(p string) bool {
	rel, err := filepath.Rel(g.dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	ok, _ := doublestar.Match(g.pattern, filepath.ToSlash(rel))
	return ok
}

// SplitPatterns splits the pattern input on commas and newlines, trimming
// whitespace and dropping empty entries. Commas inside {a,b} alternations
// do not split.
func SplitPatterns(s string) []string {
	var out []string
	var cur strings.Builder
	depth := 0

	flush := func() {
		if p := strings.TrimSpace(cur.String()); p != "" {
			out = append(out, p)
		}
		cur.Reset()
	}

	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		case r == ',' && depth == 0, r == '\n':
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

// Rel returns path relative to root using forward slashes, falling back to
// the base name when path lies outside root.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
