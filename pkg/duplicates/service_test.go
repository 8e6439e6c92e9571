package duplicates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/models"
)

type staticAffairs struct {
	affairs []models.Affair
	err     error
}

func (s *staticAffairs) ListAffairs(context.Context) ([]models.Affair, error) {
	return s.affairs, s.err
}

type memoryQueue struct {
	pairs []models.DuplicatePair
}

func (q *memoryQueue) Enqueue(_ context.Context, pairs []models.DuplicatePair) (int, error) {
	q.pairs = append(q.pairs, pairs...)
	return len(pairs), nil
}

type leftWinsMerger struct {
	calls []models.DuplicatePair
	err   error
}

func (m *leftWinsMerger) Merge(_ context.Context, pair models.DuplicatePair, opts merging.Options) (*merging.Result, error) {
	m.calls = append(m.calls, pair)
	if m.err != nil {
		return nil, m.err
	}
	plan := &merging.Plan{SurvivorID: pair.LeftID, LoserID: pair.RightID}
	return &merging.Result{Plan: plan, Applied: !opts.DryRun}, nil
}

func triplicate() *staticAffairs {
	facts := models.DatePtr(2016, time.May, 3)
	return &staticAffairs{affairs: []models.Affair{
		affair("a", "p1", "Affaire Fillon", models.AffairCategoryEmploisFictifs, facts),
		affair("b", "p1", "Affaire Fillon", models.AffairCategoryEmploisFictifs, facts),
		affair("c", "p1", "affaire fillon", models.AffairCategoryEmploisFictifs, facts),
	}}
}

func newService(affairs AffairLister, queue ReviewQueue, merger Merger, dryRun bool) *Service {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	cfg := jobs.DefaultConfig()
	cfg.DryRun = dryRun
	runner := jobs.NewRunner[models.DuplicatePair](nil, logger, cfg, PairKey)
	return NewService(NewDetector(DefaultConfig()), affairs, queue, merger, runner, logger)
}

func TestService_AutoMergeSkipsMergedAffairs(t *testing.T) {
	queue := &memoryQueue{}
	merger := &leftWinsMerger{}
	svc := newService(triplicate(), queue, merger, false)

	report, err := svc.Run(context.Background(), RunOptions{AutoMerge: true})
	require.NoError(t, err)

	assert.Len(t, report.Pairs, 3)
	assert.Equal(t, 3, report.Queued)
	assert.Len(t, queue.pairs, 3)

	require.Len(t, merger.calls, 2)
	assert.Equal(t, "a:b", PairKey(merger.calls[0]))
	assert.Equal(t, "a:c", PairKey(merger.calls[1]))

	require.NotNil(t, report.Summary)
	assert.Equal(t, 2, report.Summary.Count(OutcomeMerged))
	assert.Equal(t, 1, report.Summary.Count(jobs.OutcomeSkipped))
}

func TestService_DryRunQueuesAndMergesNothing(t *testing.T) {
	queue := &memoryQueue{}
	merger := &leftWinsMerger{}
	svc := newService(triplicate(), queue, merger, true)

	report, err := svc.Run(context.Background(), RunOptions{AutoMerge: true, DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, queue.pairs)
	assert.Equal(t, 0, report.Queued)
	assert.Equal(t, 3, report.Summary.Count(OutcomePlanned))
}

func TestService_WithoutAutoMerge(t *testing.T) {
	merger := &leftWinsMerger{}
	svc := newService(triplicate(), &memoryQueue{}, merger, false)

	report, err := svc.Run(context.Background(), RunOptions{CertainOnly: true})
	require.NoError(t, err)
	assert.Len(t, report.Pairs, 3)
	assert.Nil(t, report.Summary)
	assert.Empty(t, merger.calls)
}

func TestService_StoreFailuresAreFatal(t *testing.T) {
	t.Run("listing", func(t *testing.T) {
		svc := newService(&staticAffairs{err: errors.New("connection refused")}, &memoryQueue{}, nil, false)
		_, err := svc.Run(context.Background(), RunOptions{})
		assert.True(t, jobs.IsFatal(err))
	})

	t.Run("merging", func(t *testing.T) {
		merger := &leftWinsMerger{err: errors.New("deadlock detected")}
		svc := newService(triplicate(), &memoryQueue{}, merger, false)
		_, err := svc.Run(context.Background(), RunOptions{AutoMerge: true})
		assert.True(t, jobs.IsFatal(err))
		assert.Len(t, merger.calls, 1)
	})
}

func TestFilter(t *testing.T) {
	pairs := []models.DuplicatePair{
		{LeftID: "a", Confidence: models.DuplicateConfidenceCertain},
		{LeftID: "b", Confidence: models.DuplicateConfidencePossible},
	}
	assert.Len(t, Filter(pairs, models.DuplicateConfidenceCertain), 1)
	assert.Empty(t, Filter(pairs, models.DuplicateConfidenceHigh))
}
