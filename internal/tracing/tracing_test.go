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

package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_NoExporter(t *testing.T) {
	for _, name := range []string{"", ExporterNone} {
		p, err := New(context.Background(), Config{Exporter: name})
		require.NoError(t, err)
		assert.False(t, p.Enabled())

		_, span := p.Tracer().Start(context.Background(), "noop")
		assert.False(t, span.SpanContext().IsValid())
		span.End()
		assert.NoError(t, p.Shutdown(context.Background()))
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	_, err := New(context.Background(), Config{Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown exporter type")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{Exporter: ExporterConsole, Writer: &buf})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "upload")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "upload"`)
}

func TestEnd_SetsStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	p, err := NewWithProcessor(Config{}, sdktrace.NewSimpleSpanProcessor(exporter))
	require.NoError(t, err)

	_, ok := p.Tracer().Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := p.Tracer().Start(context.Background(), "failed")
	End(failed, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)
	assert.Len(t, spans[1].Events, 1)
}
