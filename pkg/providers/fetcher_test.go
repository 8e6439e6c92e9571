package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/models"
)

func TestBatches(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name string
		max  int
		want [][]string
	}{
		{"exact groups", 5, [][]string{ids}},
		{"remainder", 2, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{"one per call", 1, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}},
		{"non-positive uses default", 0, [][]string{ids}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Batches(ids, tt.max))
		})
	}

	assert.Empty(t, Batches(nil, 3))
}

func TestFetcher_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	config := DefaultFetcherConfig()
	config.MinDelay = 0
	f := NewFetcher(config, testLogger())

	body, err := f.Get(context.Background(), models.SourceSenat, server.URL+"/senateurs")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))

	_, err = f.Get(context.Background(), models.SourceSenat, server.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}

func TestFetcher_MinDelay(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	config := DefaultFetcherConfig()
	config.MinDelay = 50 * time.Millisecond
	f := NewFetcher(config, testLogger())

	for i := 0; i < 3; i++ {
		_, err := f.Get(context.Background(), models.SourceWikidata, server.URL)
		require.NoError(t, err)
	}

	require.Len(t, times, 3)
	// rate.Limiter allows small scheduling slack
	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 90*time.Millisecond)
}

func TestFetcher_FetchIDs(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("ids")
		queries = append(queries, ids)
		if strings.Contains(ids, "Q3") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"results": {"bindings": []}}`))
	}))
	defer server.Close()

	config := DefaultFetcherConfig()
	config.MinDelay = 0
	config.SourceMaxIDsPerCall = map[models.SourceTag]int{models.SourceWikidata: 2}
	f := NewFetcher(config, testLogger())

	bodies, errs, err := f.FetchIDs(context.Background(), models.SourceWikidata, server.URL+"?ids={ids}", []string{"Q1", "Q2", "Q3", "Q4", "Q5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1,Q2", "Q3,Q4", "Q5"}, queries)
	assert.Len(t, bodies, 2)
	require.Len(t, errs, 1)

	var providerErr *jobs.ProviderError
	require.True(t, errors.As(errs[0], &providerErr))
	assert.Equal(t, "batch 1", providerErr.Key)

	_, _, err = f.FetchIDs(context.Background(), models.SourceWikidata, server.URL, []string{"Q1"})
	assert.Error(t, err)
}

func TestFetcher_MaxIDsPerCall(t *testing.T) {
	config := DefaultFetcherConfig()
	config.MaxIDsPerCall = 7
	config.SourceMaxIDsPerCall = map[models.SourceTag]int{
		models.SourceWikidata: 50,
		models.SourceSenat:    20,
		models.SourceManual:   0,
	}
	f := NewFetcher(config, testLogger())

	tests := []struct {
		source models.SourceTag
		want   int
	}{
		{models.SourceWikidata, 50},
		{models.SourceSenat, 20},
		{models.SourceManual, 7},
		{models.SourceParlementEuropeen, 7},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, f.MaxIDsPerCall(tt.source))
		})
	}

	defaults := NewFetcher(DefaultFetcherConfig(), testLogger())
	assert.Greater(t, defaults.MaxIDsPerCall(models.SourceWikidata), defaults.MaxIDsPerCall(models.SourceSenat))
}

func TestFetcher_FetchIDsCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := NewFetcher(DefaultFetcherConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.FetchIDs(ctx, models.SourceWikidata, server.URL+"?ids={ids}", []string{"Q1"})
	assert.ErrorIs(t, err, context.Canceled)
}
