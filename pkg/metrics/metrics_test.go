package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(RecordsProcessedTotal.WithLabelValues("sync-test", "LINKED"))
	r.RecordOutcome("sync-test", "LINKED")
	r.RecordOutcome("sync-test", "LINKED")
	assert.Equal(t, before+2, testutil.ToFloat64(RecordsProcessedTotal.WithLabelValues("sync-test", "LINKED")))

	beforeCp := testutil.ToFloat64(CheckpointsSavedTotal.WithLabelValues("sync-test"))
	r.RecordCheckpoint("sync-test")
	assert.Equal(t, beforeCp+1, testutil.ToFloat64(CheckpointsSavedTotal.WithLabelValues("sync-test")))
}

func TestPusher(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

	t.Run("nil pusher is a no-op", func(t *testing.T) {
		p := NewPusher("", logger)
		assert.Nil(t, p)
		assert.NoError(t, p.Push(context.Background(), "sync"))
	})

	t.Run("pushes to the gateway", func(t *testing.T) {
		var path string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		RecordsProcessedTotal.WithLabelValues("sync-push", "LINKED").Inc()
		err := NewPusher(server.URL, logger).Push(context.Background(), "sync-push")
		require.NoError(t, err)
		assert.Equal(t, "/metrics/job/iris/batch/sync-push", path)
	})

	t.Run("gateway failure is returned", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		assert.Error(t, NewPusher(server.URL, logger).Push(context.Background(), "sync"))
	})
}
