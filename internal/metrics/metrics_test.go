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

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordRun(t *testing.T) {
	r := NewRecorder()

	r.RecordRun("zip", true)
	r.RecordRun("zip", false)
	r.RecordRun("zip", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("zip", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("zip", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastRunSuccess))
}

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.RecordFiles(3)
	r.RecordBytes(1024)
	r.RecordRequest(200)
	r.RecordRequest(0)
	r.ObserveStage("archive", 20*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.filesTotal))
	assert.Equal(t, 1024.0, testutil.ToFloat64(r.bytesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("none")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}

func TestRecorder_Push(t *testing.T) {
	var (
		gotPath string
		gotBody string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	r := NewRecorder()
	r.RecordRun("files", true)

	require.NoError(t, r.Push(context.Background(), gateway.URL, "p-1"))
	assert.Equal(t, "/metrics/job/lingohub_upload/project/p-1", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestRecorder_PushError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	err := NewRecorder().Push(context.Background(), gateway.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
