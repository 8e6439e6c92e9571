// Package jobs runs batches of records with periodic, resumable checkpoints.
//
// Progress is an explicit models.Checkpoint value passed in and returned; where a run
// resumes is a pure function of that value and the item keys.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// DefaultCheckpointEvery is the number of records between checkpoint saves
const DefaultCheckpointEvery = 25

// CheckpointStore persists checkpoints. Load returns nil, nil when the job has none.
type CheckpointStore interface {
	Load(ctx context.Context, jobName string) (*models.Checkpoint, error)
	Save(ctx context.Context, cp *models.Checkpoint) error
}

// Recorder observes runs, implemented by pkg/metrics
type Recorder interface {
	RecordOutcome(job string, outcome string)
	RecordCheckpoint(job string)
}

// Config tunes the runner
type Config struct {
	CheckpointEvery int  // records between saves (default: 25)
	ErrorSampleSize int  // error messages kept in the summary (default: 10)
	DryRun          bool // never write checkpoints
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckpointEvery: DefaultCheckpointEvery,
		ErrorSampleSize: DefaultErrorSampleSize,
	}
}

// Handler processes one item. A non-fatal error is recorded and the run continues,
// an error wrapped with Fatal aborts the run.
type Handler[T any] func(ctx context.Context, item T) (Outcome, error)

// Runner processes items in order and checkpoints its progress
type Runner[T any] struct {
	store    CheckpointStore
	logger   ectologger.Logger
	recorder Recorder
	config   Config
	key      func(T) string
	now      func() time.Time
}

// NewRunner creates a runner. key must return a stable identifier for an item.
func NewRunner[T any](store CheckpointStore, logger ectologger.Logger, config Config, key func(T) string) *Runner[T] {
	if config.CheckpointEvery <= 0 {
		config.CheckpointEvery = DefaultCheckpointEvery
	}
	if config.ErrorSampleSize <= 0 {
		config.ErrorSampleSize = DefaultErrorSampleSize
	}
	return &Runner[T]{
		store:  store,
		logger: logger,
		config: config,
		key:    key,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithRecorder attaches a metrics recorder
func (r *Runner[T]) WithRecorder(recorder Recorder) *Runner[T] {
	r.recorder = recorder
	return r
}

// Begin returns the checkpoint a run starts from. With resume, a RUNNING checkpoint is
// continued; a COMPLETED one, or none, starts a fresh run from the first record.
func (r *Runner[T]) Begin(ctx context.Context, jobName string, resume bool) (*models.Checkpoint, error) {
	ctx, span := tracing.StartSpan(ctx, "jobs.Runner.Begin")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"job": jobName, "resume": resume})

	if resume && r.store != nil {
		existing, err := r.store.Load(ctx, jobName)
		if err != nil {
			log.WithError(err).Error("Failed to load checkpoint")
			return nil, Fatal(fmt.Errorf("failed to load checkpoint for %s: %w", jobName, err))
		}
		switch {
		case existing == nil:
			log.Info("No checkpoint found, starting from the first record")
		case existing.IsResumable():
			log.WithFields(map[string]any{
				"last_key":        existing.LastKey,
				"last_index":      existing.LastIndex,
				"processed_count": existing.ProcessedCount,
			}).Info("Resuming from checkpoint")
			return existing, nil
		case existing.Status == models.CheckpointStatusCompleted:
			log.Info("Previous run completed, restarting from the first record")
		}
	}

	cp := models.NewCheckpoint(jobName, r.now())
	if err := r.save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// ResumeIndex returns the index of the first item still to process and whether the
// checkpoint's last key was found in keys. The checkpoint's LastIndex is trusted only
// when the key at that index still matches, otherwise LastKey is searched for. When the
// key cannot be found the run restarts from zero rather than risk skipping a record.
func ResumeIndex(cp *models.Checkpoint, keys []string) (int, bool) {
	if !cp.IsResumable() {
		return 0, true
	}
	if cp.LastIndex < len(keys) && keys[cp.LastIndex] == cp.LastKey {
		return cp.LastIndex + 1, true
	}
	for i, key := range keys {
		if key == cp.LastKey {
			return i + 1, true
		}
	}
	return 0, false
}

// Run processes items starting after the checkpoint and returns the updated checkpoint.
//
// The checkpoint is saved every CheckpointEvery records and when the run completes. On
// cancellation the last fully processed record is saved and ctx.Err() is returned. A
// fatal handler error returns immediately without saving, leaving the stored checkpoint
// at the previous save.
func (r *Runner[T]) Run(ctx context.Context, cp *models.Checkpoint, items []T, handler Handler[T]) (*models.Checkpoint, *Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "jobs.Runner.Run")
	defer span.End()

	ctx = SetJobName(ctx, cp.JobName)
	if GetRunID(ctx) == "" {
		ctx = SetRunID(ctx, uuid.New().String())
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"job":    cp.JobName,
		"run_id": GetRunID(ctx),
	})

	summary := NewSummary(cp.JobName, r.config.ErrorSampleSize)
	summary.StartedAt = r.now()

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = r.key(item)
	}

	if cp.Status == models.CheckpointStatusCompleted {
		cp = models.NewCheckpoint(cp.JobName, r.now())
	}

	start, verified := ResumeIndex(cp, keys)
	if !verified {
		log.WithFields(map[string]any{"last_key": cp.LastKey}).Warn("Checkpoint key not found in batch, restarting from the first record")
		cp = models.NewCheckpoint(cp.JobName, r.now())
	}
	summary.Resumed = start

	log.WithFields(map[string]any{"items": len(items), "start": start}).Info("Starting job run")

	sinceSave := 0
	for i := start; i < len(items); i++ {
		if ctx.Err() != nil {
			return r.interrupted(ctx, cp, summary, sinceSave)
		}

		outcome, err := handler(ctx, items[i])
		if err != nil {
			if IsFatal(err) {
				summary.FinishedAt = r.now()
				log.WithError(err).WithFields(map[string]any{"key": keys[i], "index": i}).Error("Fatal error, aborting run")
				tracing.RecordError(ctx, err)
				return cp, summary, err
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// the record did not finish
				return r.interrupted(ctx, cp, summary, sinceSave)
			}

			log.WithError(err).WithFields(map[string]any{"key": keys[i]}).Warn("Record failed")
			summary.AddError(keys[i], err)
			if outcome == "" {
				outcome = OutcomeError
			}
		}

		summary.Add(outcome)
		if r.recorder != nil {
			r.recorder.RecordOutcome(cp.JobName, string(outcome))
		}

		cp.LastIndex = i
		cp.LastKey = keys[i]
		cp.ProcessedCount++
		sinceSave++

		if sinceSave >= r.config.CheckpointEvery {
			if err := r.save(ctx, cp); err != nil {
				summary.FinishedAt = r.now()
				return cp, summary, err
			}
			sinceSave = 0
		}
	}

	cp.Status = models.CheckpointStatusCompleted
	if err := r.save(ctx, cp); err != nil {
		summary.FinishedAt = r.now()
		return cp, summary, err
	}

	summary.FinishedAt = r.now()
	log.WithFields(summary.Fields()).Info("Job run completed")

	return cp, summary, nil
}

func (r *Runner[T]) interrupted(ctx context.Context, cp *models.Checkpoint, summary *Summary, unsaved int) (*models.Checkpoint, *Summary, error) {
	summary.FinishedAt = r.now()
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"job":       cp.JobName,
		"last_key":  cp.LastKey,
		"processed": cp.ProcessedCount,
	})

	if unsaved > 0 {
		// the caller's ctx is done, the final save must still reach the store
		if err := r.save(context.WithoutCancel(ctx), cp); err != nil {
			log.WithError(err).Error("Failed to save checkpoint after cancellation")
			return cp, summary, err
		}
	}

	log.Warn("Job run cancelled, checkpoint saved")
	return cp, summary, ctx.Err()
}

func (r *Runner[T]) save(ctx context.Context, cp *models.Checkpoint) error {
	cp.UpdatedAt = r.now()
	if r.store == nil || r.config.DryRun {
		return nil
	}

	if err := r.store.Save(ctx, cp); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"job": cp.JobName}).Error("Failed to save checkpoint")
		return Fatal(fmt.Errorf("failed to save checkpoint for %s: %w", cp.JobName, err))
	}
	if r.recorder != nil {
		r.recorder.RecordCheckpoint(cp.JobName)
	}
	return nil
}
