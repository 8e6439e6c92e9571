package duplicates

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// JobName is the checkpoint name of the auto-merge pass
const JobName = "duplicates-merge"

const (
	OutcomeMerged  jobs.Outcome = "MERGED"
	OutcomePlanned jobs.Outcome = "PLANNED"
)

// AffairLister loads the affairs to compare
type AffairLister interface {
	ListAffairs(ctx context.Context) ([]models.Affair, error)
}

// ReviewQueue persists detected pairs for manual review
type ReviewQueue interface {
	Enqueue(ctx context.Context, pairs []models.DuplicatePair) (int, error)
}

// Merger is implemented by *merging.Engine
type Merger interface {
	Merge(ctx context.Context, pair models.DuplicatePair, opts merging.Options) (*merging.Result, error)
}

// RunOptions controls one detection pass
type RunOptions struct {
	Since       *time.Time
	CertainOnly bool
	AutoMerge   bool // merge CERTAIN pairs
	DryRun      bool
	Resume      bool
}

// Report is the result of a detection pass
type Report struct {
	Pairs   []models.DuplicatePair `json:"pairs"`
	Queued  int                    `json:"queued"`
	Summary *jobs.Summary          `json:"summary,omitempty"`
}

// Service runs detection, queues pairs and optionally auto-merges CERTAIN ones
type Service struct {
	detector *Detector
	affairs  AffairLister
	queue    ReviewQueue
	merger   Merger
	runner   *jobs.Runner[models.DuplicatePair]
	logger   ectologger.Logger
}

// NewService creates a detection service. merger and runner are only needed for AutoMerge.
func NewService(
	detector *Detector,
	affairs AffairLister,
	queue ReviewQueue,
	merger Merger,
	runner *jobs.Runner[models.DuplicatePair],
	logger ectologger.Logger,
) *Service {
	return &Service{
		detector: detector,
		affairs:  affairs,
		queue:    queue,
		merger:   merger,
		runner:   runner,
		logger:   logger,
	}
}

// PairKey identifies a pair inside a merge batch
func PairKey(p models.DuplicatePair) string {
	return p.LeftID + ":" + p.RightID
}

// Run executes one pass
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Service.Run")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"auto_merge":   opts.AutoMerge,
		"certain_only": opts.CertainOnly,
		"dry_run":      opts.DryRun,
	})

	affairs, err := s.affairs.ListAffairs(ctx)
	if err != nil {
		return nil, jobs.Fatal(fmt.Errorf("failed to list affairs: %w", err))
	}

	var pairs []models.DuplicatePair
	if opts.Since != nil {
		pairs = s.detector.DetectWindow(affairs, *opts.Since)
	} else {
		pairs = s.detector.Detect(affairs)
	}
	if opts.CertainOnly {
		pairs = Filter(pairs, models.DuplicateConfidenceCertain)
	}

	for _, p := range pairs {
		metrics.DuplicatePairsTotal.WithLabelValues(string(p.Confidence)).Inc()
	}
	log.WithFields(map[string]any{"affairs": len(affairs), "pairs": len(pairs)}).Info("Duplicate detection finished")

	report := &Report{Pairs: pairs}

	if !opts.DryRun && s.queue != nil && len(pairs) > 0 {
		queued, err := s.queue.Enqueue(ctx, pairs)
		if err != nil {
			return report, jobs.Fatal(fmt.Errorf("failed to queue duplicate pairs: %w", err))
		}
		report.Queued = queued
	}

	if !opts.AutoMerge {
		return report, nil
	}
	if s.merger == nil || s.runner == nil {
		return report, jobs.Fatalf("auto-merge requires a merge engine")
	}

	certain := Filter(pairs, models.DuplicateConfidenceCertain)
	cp, err := s.runner.Begin(ctx, JobName, opts.Resume)
	if err != nil {
		return report, err
	}

	_, summary, err := s.runner.Run(ctx, cp, certain, s.mergeHandler(opts.DryRun))
	report.Summary = summary
	return report, err
}

// mergeHandler merges pairs in order. Once an affair is merged away, later pairs
// naming it are skipped; the next pass re-detects them against the survivor.
func (s *Service) mergeHandler(dryRun bool) jobs.Handler[models.DuplicatePair] {
	gone := make(map[string]bool)

	return func(ctx context.Context, pair models.DuplicatePair) (jobs.Outcome, error) {
		if gone[pair.LeftID] || gone[pair.RightID] {
			return jobs.OutcomeSkipped, nil
		}

		result, err := s.merger.Merge(ctx, pair, merging.Options{DryRun: dryRun})
		if err != nil {
			return "", jobs.Fatal(err)
		}
		if !result.Applied {
			return OutcomePlanned, nil
		}

		gone[result.Plan.LoserID] = true
		return OutcomeMerged, nil
	}
}

// Filter keeps the pairs of one bucket
func Filter(pairs []models.DuplicatePair, confidence models.DuplicateConfidence) []models.DuplicatePair {
	var out []models.DuplicatePair
	for _, p := range pairs {
		if p.Confidence == confidence {
			out = append(out, p)
		}
	}
	return out
}
