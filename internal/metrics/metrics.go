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

// Package metrics records Prometheus metrics for upload runs.
//
// A run is a short-lived process, so metrics live in a private registry and
// are optionally pushed to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job name.
const Job = "lingohub_upload"

// Recorder holds the collectors of one run.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	filesTotal     prometheus.Counter
	bytesTotal     prometheus.Counter
	requestsTotal  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	lastRunSuccess prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lingohub_upload_runs_total",
				Help: "Upload runs by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		filesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lingohub_upload_files_total",
			Help: "Files resolved for upload",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lingohub_upload_bytes_total",
			Help: "Bytes sent in upload request bodies, archive size in zip mode",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lingohub_upload_requests_total",
				Help: "Upload requests by HTTP status code",
			},
			[]string{"code"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lingohub_upload_stage_duration_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lingohub_upload_last_run_success",
			Help: "1 if the last run succeeded, 0 otherwise",
		}),
	}

	r.registry.MustRegister(
		r.runsTotal,
		r.filesTotal,
		r.bytesTotal,
		r.requestsTotal,
		r.stageDuration,
		r.lastRunSuccess,
	)
	return r
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(mode string, success bool) {
	status := "failed"
	if success {
		status = "success"
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
	r.runsTotal.WithLabelValues(mode, status).Inc()
}

// RecordFiles adds n resolved files.
func (r *Recorder) RecordFiles(n int) {
	r.filesTotal.Add(float64(n))
}

// RecordBytes adds n uploaded bytes.
func (r *Recorder) RecordBytes(n int64) {
	r.bytesTotal.Add(float64(n))
}

// RecordRequest counts one upload request. code 0 means no response.
func (r *Recorder) RecordRequest(code int) {
	label := "none"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	r.requestsTotal.WithLabelValues(label).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Push sends every collector to the Pushgateway at url, grouped by
// project. The push replaces earlier metrics of the same group.
func (r *Recorder) Push(ctx context.Context, url, projectID string) error {
	pusher := push.New(url, Job).Gatherer(r.registry)
	if projectID != "" {
		pusher = pusher.Grouping("project", projectID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
