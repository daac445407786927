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

/*
Package tracing sets up OpenTelemetry tracing for an upload run.

Spans are exported by one of:

  - otlp-http: OTLP over HTTP (otlptracehttp)
  - otlp-grpc: OTLP over gRPC (otlptracegrpc)
  - console: pretty-printed JSON on stderr (stdouttrace)

With no exporter configured, a no-op provider is used and spans cost
nothing.

	provider, err := tracing.New(ctx, tracing.Config{Exporter: "otlp-http"})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	ctx, span := provider.Tracer().Start(ctx, "upload")
	defer tracing.End(span, err)

The OTLP exporters also honour the standard OTEL_EXPORTER_OTLP_*
environment variables.
*/
package tracing
