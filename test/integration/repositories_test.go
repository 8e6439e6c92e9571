//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/models"
)

func createPolitician(t *testing.T, ctx context.Context, store *app.Store, name string, birth *time.Time) *models.Politician {
	t.Helper()
	p := &models.Politician{FullName: name, BirthDate: birth}
	require.NoError(t, store.CreatePolitician(ctx, p))
	return p
}

func TestPoliticianRepository(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	p := createPolitician(t, ctx, store, "Jean Dupont", models.DatePtr(1960, time.March, 1))

	got, err := store.Politicians().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", got.FullName)
	assert.Equal(t, models.DatePtr(1960, time.March, 1).Format(time.DateOnly), got.BirthDate.Format(time.DateOnly))

	_, err = store.Politicians().Get(ctx, "6b0d2c1e-0000-4000-8000-000000000000")
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestExternalLinkRepository(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first := createPolitician(t, ctx, store, "Jean Dupont", nil)
	second := createPolitician(t, ctx, store, "Marie Curie", nil)

	link := &models.ExternalLink{
		Source:       models.SourceSenat,
		ExternalID:   "19000A",
		PoliticianID: &first.ID,
		Confidence:   1,
		MatchedBy:    models.MatchedByExternalID,
	}
	created, err := store.UpsertLink(ctx, link)
	require.NoError(t, err)
	assert.True(t, created)

	t.Run("natural key is never reassigned", func(t *testing.T) {
		again := &models.ExternalLink{
			Source:       models.SourceSenat,
			ExternalID:   "19000A",
			PoliticianID: &second.ID,
			Confidence:   0.5,
			MatchedBy:    models.MatchedByNameOnly,
		}
		created, err := store.UpsertLink(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)

		found, err := store.FindLink(ctx, models.SourceSenat, "19000A")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, first.ID, *found.PoliticianID)
	})

	t.Run("missing link is nil", func(t *testing.T) {
		found, err := store.FindLink(ctx, models.SourceSenat, "nope")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("unlinked pool excludes linked politicians", func(t *testing.T) {
		pool, err := store.ListUnlinkedPoliticians(ctx, models.SourceSenat)
		require.NoError(t, err)
		require.Len(t, pool, 1)
		assert.Equal(t, second.ID, pool[0].ID)

		pool, err = store.ListUnlinkedPoliticians(ctx, models.SourceWikidata)
		require.NoError(t, err)
		assert.Len(t, pool, 2)
	})

	t.Run("invalid owner is rejected", func(t *testing.T) {
		_, err := store.UpsertLink(ctx, &models.ExternalLink{Source: models.SourceSenat, ExternalID: "x", MatchedBy: models.MatchedByManual})
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestMandateRepository(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := createPolitician(t, ctx, store, "Jean Dupont", nil)

	m := &models.Mandate{
		PoliticianID: p.ID,
		Type:         models.MandateDepute,
		Title:        "Député",
		StartDate:    models.Date(2017, time.June, 21),
		IsCurrent:    true,
	}
	require.NoError(t, store.UpsertMandate(ctx, m))

	t.Run("start within the window updates", func(t *testing.T) {
		again := &models.Mandate{
			PoliticianID: p.ID,
			Type:         models.MandateDepute,
			Constituency: "Somme (1)",
			StartDate:    models.Date(2017, time.June, 18),
			IsCurrent:    true,
		}
		require.NoError(t, store.UpsertMandate(ctx, again))
		assert.Equal(t, m.ID, again.ID)

		mandates, err := store.Mandates().ListByPolitician(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, mandates, 1)
		assert.Equal(t, "Somme (1)", mandates[0].Constituency)
		assert.Equal(t, "Député", mandates[0].Title)
	})

	t.Run("later term is a new mandate", func(t *testing.T) {
		next := &models.Mandate{
			PoliticianID: p.ID,
			Type:         models.MandateDepute,
			StartDate:    models.Date(2022, time.June, 22),
			IsCurrent:    true,
		}
		require.NoError(t, store.UpsertMandate(ctx, next))

		open, err := store.ListOpenMandates(ctx)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})

	t.Run("close", func(t *testing.T) {
		require.NoError(t, store.CloseMandates(ctx, []models.MandateClosure{{
			MandateID: m.ID,
			EndDate:   models.Date(2022, time.June, 21),
		}}))

		open, err := store.ListOpenMandates(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.NotEqual(t, m.ID, open[0].ID)
	})
}

func TestCheckpointRepository(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	cp, err := store.Load(ctx, "sync-senat")
	require.NoError(t, err)
	assert.Nil(t, cp)

	now := time.Now().UTC().Truncate(time.Second)
	saved := models.NewCheckpoint("sync-senat", now)
	require.NoError(t, store.Save(ctx, saved))

	saved.LastKey, saved.LastIndex, saved.ProcessedCount = "SENAT:19000A", 4, 5
	require.NoError(t, store.Save(ctx, saved))

	cp, err = store.Load(ctx, "sync-senat")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, 4, cp.LastIndex)
	assert.Equal(t, "SENAT:19000A", cp.LastKey)
	assert.Equal(t, models.CheckpointStatusRunning, cp.Status)

	all, err := store.Checkpoints().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Checkpoints().Delete(ctx, "sync-senat"))
	err = store.Checkpoints().Delete(ctx, "sync-senat")
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
