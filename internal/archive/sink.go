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

package archive

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// ErrLimitExceeded is returned by Sink.Write when accepting a chunk would
// grow the buffer past its limit.
var ErrLimitExceeded = errors.New("archive exceeds size limit")

// SinkResult is delivered once on Sink.Done after the sink is closed.
type SinkResult struct {
	// Data is every accepted chunk, concatenated in arrival order.
	Data []byte

	// Chunks is the number of Write calls that contributed to Data.
	Chunks int

	// Err is the error the sink was closed with, or the first write error.
	Err error
}

// Sink accumulates compressed output as it arrives. Completion is signalled
// explicitly: Done yields exactly one SinkResult after Close or
// CloseWithError, never earlier.
type Sink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int64
	chunks  int
	onChunk func([]byte)
	err     error
	closed  bool
	done    chan SinkResult
}

// NewSink creates a Sink that holds at most limit bytes (0 means no
// limit). onChunk, if non-nil, observes every accepted chunk in order; it
// must not retain the slice.
func NewSink(limit int64, onChunk func([]byte)) *Sink {
	return &Sink{
		limit:   limit,
		onChunk: onChunk,
		done:    make(chan SinkResult, 1),
	}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.limit > 0 && int64(s.buf.Len())+int64(len(p)) > s.limit {
		s.err = ErrLimitExceeded
		return 0, s.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	if s.onChunk != nil {
		s.onChunk(p)
	}
	s.chunks++
	return s.buf.Write(p)
}

// Close marks the stream complete.
func (s *Sink) Close() error {
	return s.CloseWithError(nil)
}

// CloseWithError marks the stream finished with err. Only the first call
// has an effect.
func (s *Sink) CloseWithError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err == nil {
		err = s.err
	}

	res := SinkResult{Chunks: s.chunks, Err: err}
	if err == nil {
		res.Data = s.buf.Bytes()
	}
	s.done <- res
	close(s.done)
	return nil
}

// Done returns the completion channel.
func (s *Sink) Done() <-chan SinkResult {
	return s.done
}

// Len returns the number of bytes accepted so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}
