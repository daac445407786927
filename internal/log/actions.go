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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ActionsHandler renders records as GitHub Actions workflow commands.
// Info records are plain lines; debug, warning and error records become
// ::debug::, ::warning:: and ::error:: commands. A "file" attribute is
// lifted into the command properties so the runner can annotate it.
type ActionsHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewActionsHandler creates an ActionsHandler writing to w.
func NewActionsHandler(w io.Writer, opts *slog.HandlerOptions) *ActionsHandler {
	h := &ActionsHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ActionsHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

// Handle implements slog.Handler.
func (h *ActionsHandler) Handle(_ context.Context, r slog.Record) error {
	var file string
	var fields []string

	appendAttr := func(prefix string, a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		if a.Key == FileKey && prefix == "" && a.Value.Kind() == slog.KindString {
			file = a.Value.String()
		}
		fields = append(fields, renderAttr(prefix, a)...)
	}

	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}
	for _, a := range h.attrs {
		appendAttr("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(prefix, a)
		return true
	})

	msg := r.Message
	if len(fields) > 0 {
		msg += " " + strings.Join(fields, " ")
	}

	var line string
	switch {
	case r.Level >= slog.LevelError:
		line = command("error", file, msg)
	case r.Level >= slog.LevelWarn:
		line = command("warning", file, msg)
	case r.Level >= slog.LevelInfo:
		line = msg
	default:
		line = command("debug", "", msg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

// WithAttrs implements slog.Handler.
func (h *ActionsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	prefix := strings.Join(h.groups, ".")
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ActionsHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Command formats a workflow command line. Exposed so failure reporting
// can emit ::error:: without going through a logger.
func Command(name, message string) string {
	return command(name, "", message)
}

func command(name, file, message string) string {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(name)
	if file != "" {
		b.WriteString(" file=")
		b.WriteString(escapeProperty(file))
	}
	b.WriteString("::")
	b.WriteString(escapeData(message))
	return b.String()
}

func renderAttr(prefix string, a slog.Attr) []string {
	if a.Value.Kind() == slog.KindGroup {
		var out []string
		for _, ga := range a.Value.Group() {
			out = append(out, renderAttr(prefix+a.Key+".", ga)...)
		}
		return out
	}
	return []string{prefix + a.Key + "=" + renderValue(a.Value)}
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		s = v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

// escapeData follows the runner's escaping rules for command messages.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, ",", "%2C")
}
