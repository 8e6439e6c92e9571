package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/config"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/logging"
	"github.com/Ramsey-B/iris/pkg/models"
)

const senateurs = `[
	{"matricule": "19000A", "prenom_usuel": "Jean", "nom_usuel": "Dupont", "date_naissance": "1960-03-02"},
	{"matricule": "19000B", "prenom_usuel": "Bad", "nom_usuel": "Date", "date_naissance": "hier"}
]`

func testApp() *App {
	return &App{
		Config: &config.Config{ProviderMaxIDsPerCall: 2, ProviderTimeout: time.Second},
		Logger: logging.Nop(),
	}
}

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		wantErr bool
	}{
		{"file", Input{File: "a.json"}, false},
		{"url", Input{URL: "https://example.org"}, false},
		{"url with ids", Input{URL: "https://example.org?ids={ids}", IDs: []string{"1"}}, false},
		{"nothing", Input{}, true},
		{"both", Input{File: "a.json", URL: "https://example.org"}, true},
		{"ids without url", Input{File: "a.json", IDs: []string{"1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollect_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senateurs.json")
	require.NoError(t, os.WriteFile(path, []byte(senateurs), 0o600))

	records, errs, err := testApp().Collect(context.Background(), models.SourceSenat, Input{File: path})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "19000A", records[0].ExternalID)
	assert.Len(t, errs, 1)
}

func TestCollect_Batches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "S3" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(senateurs))
	}))
	defer server.Close()

	input := Input{URL: server.URL + "?ids={ids}", IDs: []string{"S1", "S2", "S3"}}
	records, errs, err := testApp().Collect(context.Background(), models.SourceSenat, input)
	require.NoError(t, err)

	// one good batch, one failed batch plus one undecodable item
	assert.Len(t, records, 1)
	assert.Len(t, errs, 2)
}

func TestCollect_Unusable(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown source", func(t *testing.T) {
		_, _, err := testApp().Collect(ctx, models.SourceRNE, Input{File: "x.json"})
		assert.True(t, jobs.IsFatal(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := testApp().Collect(ctx, models.SourceSenat, Input{File: filepath.Join(t.TempDir(), "nope.json")})
		assert.True(t, jobs.IsFatal(err))
	})

	t.Run("unparseable document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		records, errs, err := testApp().Collect(ctx, models.SourceSenat, Input{File: path})
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Len(t, errs, 1)
	})
}

func TestAddProviderErrors(t *testing.T) {
	summary := jobs.NewSummary("sync-senat", 5)
	AddProviderErrors(summary, []error{
		jobs.NewProviderError("SENAT", "#1", errors.New("missing name")),
		jobs.NewProviderError("SENAT", "batch 2", errors.New("502")),
	})

	assert.Equal(t, 2, summary.Count(jobs.OutcomeError))
	assert.Equal(t, 2, summary.ErrorCount)
	assert.Equal(t, "SENAT #1: missing name", summary.Errors[0])

	AddProviderErrors(nil, []error{errors.New("ignored")})
}

func TestLocked_WithoutRedis(t *testing.T) {
	a := testApp()
	var job string
	err := a.Locked(context.Background(), "sync-senat", func(ctx context.Context) error {
		job = jobs.GetJobName(ctx)
		assert.NotEmpty(t, jobs.GetRunID(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "sync-senat", job)
}
