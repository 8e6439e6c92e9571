// Package merging folds a confirmed duplicate affair into its survivor
package merging

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// Store is the persistence the engine needs. Every call made inside InTx's fn shares
// one transaction.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAffairRecord(ctx context.Context, id string) (*models.AffairRecord, error)
	MoveSources(ctx context.Context, sourceIDs []string, affairID string) error
	MoveLinks(ctx context.Context, linkIDs []string, affairID string) error
	// DeleteAffair removes the affair together with any children still attached to it
	DeleteAffair(ctx context.Context, id string) error
}

// ReviewStore resolves queued duplicate reviews once a merge is applied
type ReviewStore interface {
	ResolveMerged(ctx context.Context, survivorID, loserID string) error
}

// Options controls a merge
type Options struct {
	DryRun bool
}

// Result is the outcome of Merge or MergeInto
type Result struct {
	Plan    *Plan `json:"plan"`
	Applied bool  `json:"applied"`
}

// Engine handles affair merging
type Engine struct {
	store   Store
	reviews ReviewStore
	emitter events.Emitter
	logger  ectologger.Logger
}

// NewEngine creates a new merge engine. reviews may be nil.
func NewEngine(store Store, reviews ReviewStore, emitter events.Emitter, logger ectologger.Logger) *Engine {
	if emitter == nil {
		emitter = events.Noop{}
	}
	return &Engine{
		store:   store,
		reviews: reviews,
		emitter: emitter,
		logger:  logger,
	}
}

// Merge merges a detected pair, choosing the survivor by policy
func (e *Engine) Merge(ctx context.Context, pair models.DuplicatePair, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	return e.run(ctx, pair.LeftID, pair.RightID, opts, PlanMerge)
}

// MergeInto merges loserID into survivorID regardless of the survivor policy
func (e *Engine) MergeInto(ctx context.Context, survivorID, loserID string, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeInto")
	defer span.End()

	return e.run(ctx, survivorID, loserID, opts, PlanInto)
}

func (e *Engine) run(
	ctx context.Context,
	firstID, secondID string,
	opts Options,
	planner func(a, b *models.AffairRecord) (*Plan, error),
) (*Result, error) {
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"first_id":  firstID,
		"second_id": secondID,
		"dry_run":   opts.DryRun,
	})

	result := &Result{}
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		first, err := e.store.GetAffairRecord(ctx, firstID)
		if err != nil {
			return fmt.Errorf("failed to load affair %s: %w", firstID, err)
		}
		second, err := e.store.GetAffairRecord(ctx, secondID)
		if err != nil {
			return fmt.Errorf("failed to load affair %s: %w", secondID, err)
		}

		plan, err := planner(first, second)
		if err != nil {
			return err
		}
		result.Plan = plan

		log = log.WithFields(map[string]any{
			"survivor_id":   plan.SurvivorID,
			"loser_id":      plan.LoserID,
			"reason":        plan.Reason,
			"move_sources":  len(plan.MoveSources),
			"skip_sources":  len(plan.SkipSources),
			"move_links":    len(plan.MoveLinks),
			"skip_links":    len(plan.SkipLinks),
			"source_count":  plan.SourceCount,
			"politician_id": plan.PoliticianID,
		})

		if opts.DryRun {
			log.Info("Dry run, merge planned but not applied")
			return nil
		}

		return e.apply(ctx, plan)
	})
	if err != nil {
		log.WithError(err).Error("Merge failed")
		tracing.RecordError(ctx, err)
		return nil, err
	}

	if opts.DryRun {
		metrics.MergesTotal.WithLabelValues("dry_run").Inc()
		return result, nil
	}

	result.Applied = true
	metrics.MergesTotal.WithLabelValues("applied").Inc()
	log.Info("Merged affairs")

	// the merge is committed, a failed event is reported but not returned
	if err := e.emitter.EmitAffairMerged(ctx, events.MergeDetails{
		SurvivorID:   result.Plan.SurvivorID,
		LoserID:      result.Plan.LoserID,
		PoliticianID: result.Plan.PoliticianID,
		MovedSources: len(result.Plan.MoveSources),
		MovedLinks:   len(result.Plan.MoveLinks),
	}); err != nil {
		log.WithError(err).Warn("Failed to emit merge event")
	}

	return result, nil
}

func (e *Engine) apply(ctx context.Context, plan *Plan) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.apply")
	defer span.End()

	if ids := plan.SourceIDs(); len(ids) > 0 {
		if err := e.store.MoveSources(ctx, ids, plan.SurvivorID); err != nil {
			return fmt.Errorf("failed to move sources to %s: %w", plan.SurvivorID, err)
		}
	}
	if ids := plan.LinkIDs(); len(ids) > 0 {
		if err := e.store.MoveLinks(ctx, ids, plan.SurvivorID); err != nil {
			return fmt.Errorf("failed to move links to %s: %w", plan.SurvivorID, err)
		}
	}
	if err := e.store.DeleteAffair(ctx, plan.LoserID); err != nil {
		return fmt.Errorf("failed to delete affair %s: %w", plan.LoserID, err)
	}
	if e.reviews != nil {
		if err := e.reviews.ResolveMerged(ctx, plan.SurvivorID, plan.LoserID); err != nil {
			return fmt.Errorf("failed to resolve duplicate reviews: %w", err)
		}
	}
	return nil
}
