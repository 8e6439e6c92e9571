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
	"github.com/Ramsey-B/iris/pkg/duplicates"
	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/models"
)

func createAffair(t *testing.T, ctx context.Context, store *app.Store, politicianID, title string, facts time.Time, urls ...string) *models.Affair {
	t.Helper()
	a := &models.Affair{
		PoliticianID: politicianID,
		Title:        title,
		Category:     models.AffairCategoryEmploisFictifs,
		Status:       models.AffairStatusCondamnation,
		FactsDate:    &facts,
	}
	require.NoError(t, store.Affairs().Create(ctx, a))
	for _, url := range urls {
		require.NoError(t, store.Affairs().AddSource(ctx, &models.AffairSource{AffairID: a.ID, URL: url, Title: title}))
	}
	return a
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := createPolitician(t, ctx, store, "Jean Dupont", nil)

	survivor := createAffair(t, ctx, store, p.ID, "Emplois fictifs de la mairie", models.Date(2010, time.May, 1),
		"https://example.org/a", "https://example.org/b")
	loser := createAffair(t, ctx, store, p.ID, "Affaire des emplois fictifs de la mairie", models.Date(2010, time.May, 3),
		"https://example.org/b", "https://example.org/c")

	_, err := store.UpsertLink(ctx, &models.ExternalLink{
		Source: models.SourceWikidata, ExternalID: "Q1", AffairID: &loser.ID, Confidence: 1, MatchedBy: models.MatchedByManual,
	})
	require.NoError(t, err)

	queued, err := store.Enqueue(ctx, []models.DuplicatePair{{LeftID: survivor.ID, RightID: loser.ID, PoliticianID: p.ID, Score: 0.9}})
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	engine := merging.NewEngine(store, store, events.Noop{}, logger)
	result, err := engine.Merge(ctx, models.DuplicatePair{LeftID: survivor.ID, RightID: loser.ID}, merging.Options{})
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, survivor.ID, result.Plan.SurvivorID)

	record, err := store.GetAffairRecord(ctx, survivor.ID)
	require.NoError(t, err)
	assert.Len(t, record.Sources, 3)
	require.Len(t, record.Links, 1)
	assert.Equal(t, "Q1", record.Links[0].ExternalID)

	_, err = store.Affairs().Get(ctx, loser.ID)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	pending, err := store.Reviews().ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReviewQueue(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := createPolitician(t, ctx, store, "Jean Dupont", nil)

	a := createAffair(t, ctx, store, p.ID, "Favoritisme marché public", models.Date(2015, time.January, 1))
	b := createAffair(t, ctx, store, p.ID, "Favoritisme sur un marché public", models.Date(2015, time.January, 5))
	c := createAffair(t, ctx, store, p.ID, "Marché public favoritisme", models.Date(2015, time.January, 9))

	pairs := []models.DuplicatePair{
		{LeftID: a.ID, RightID: b.ID, PoliticianID: p.ID, Score: 0.8, Confidence: models.DuplicateConfidenceHigh},
		{LeftID: b.ID, RightID: c.ID, PoliticianID: p.ID, Score: 0.7, Confidence: models.DuplicateConfidencePossible},
	}
	queued, err := store.Enqueue(ctx, pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)

	// the same pair in the other order is already queued
	queued, err = store.Enqueue(ctx, []models.DuplicatePair{{LeftID: b.ID, RightID: a.ID, PoliticianID: p.ID, Score: 0.8}})
	require.NoError(t, err)
	assert.Equal(t, 0, queued)

	require.NoError(t, store.ResolveMerged(ctx, a.ID, b.ID))
	pending, err := store.Reviews().ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "the b/c review names the deleted affair")
}

func TestDuplicatesAutoMerge(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := createPolitician(t, ctx, store, "Jean Dupont", nil)

	keep := createAffair(t, ctx, store, p.ID, "Emplois fictifs", models.Date(2012, time.March, 1), "https://example.org/1", "https://example.org/2")
	createAffair(t, ctx, store, p.ID, "Emplois fictifs", models.Date(2012, time.March, 1), "https://example.org/2")

	runner := jobs.NewRunner(store, logger, jobs.DefaultConfig(), duplicates.PairKey)
	service := duplicates.NewService(
		duplicates.NewDetector(duplicates.DefaultConfig()),
		store, store,
		merging.NewEngine(store, store, events.Noop{}, logger),
		runner,
		logger,
	)

	report, err := service.Run(ctx, duplicates.RunOptions{AutoMerge: true})
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, models.DuplicateConfidenceCertain, report.Pairs[0].Confidence)

	affairs, err := store.ListAffairs(ctx)
	require.NoError(t, err)
	require.Len(t, affairs, 1)
	assert.Equal(t, keep.ID, affairs[0].ID)

	cp, err := store.Load(ctx, duplicates.JobName)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, models.CheckpointStatusCompleted, cp.Status)
}
