package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

var columns = []string{"job_name", "last_key", "last_index", "processed_count", "status", "started_at", "updated_at"}

// Repository persists job checkpoints, one row per job name
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new checkpoint repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Load returns nil, nil when the job has never saved a checkpoint
func (r *Repository) Load(ctx context.Context, jobName string) (*models.Checkpoint, error) {
	ctx, span := tracing.StartSpan(ctx, "checkpoint.Repository.Load")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("job_checkpoints")
	sb.Where(sb.Equal("job_name", jobName))

	query, args := sb.Build()
	var cp models.Checkpoint
	if err := r.db.GetContext(ctx, &cp, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("job_name", jobName).Error("Failed to load checkpoint")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load checkpoint")
	}
	return &cp, nil
}

// Save writes cp outside any caller transaction so progress survives a rolled back record
func (r *Repository) Save(ctx context.Context, cp *models.Checkpoint) error {
	ctx, span := tracing.StartSpan(ctx, "checkpoint.Repository.Save")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto("job_checkpoints")
	ib.Cols(columns...)
	ib.Values(cp.JobName, cp.LastKey, cp.LastIndex, cp.ProcessedCount, cp.Status, cp.StartedAt, cp.UpdatedAt)
	ib.OnConflictUpdate([]string{"job_name"}, "last_key", "last_index", "processed_count", "status", "started_at", "updated_at")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("job_name", cp.JobName).Error("Failed to save checkpoint")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save checkpoint")
	}
	return nil
}

// List returns every checkpoint ordered by job name
func (r *Repository) List(ctx context.Context) ([]models.Checkpoint, error) {
	ctx, span := tracing.StartSpan(ctx, "checkpoint.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("job_checkpoints")
	sb.OrderBy("job_name")

	query, args := sb.Build()
	var checkpoints []models.Checkpoint
	if err := r.db.SelectContext(ctx, &checkpoints, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list checkpoints")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list checkpoints")
	}
	return checkpoints, nil
}

// Delete removes a job's checkpoint so the next run starts from the beginning
func (r *Repository) Delete(ctx context.Context, jobName string) error {
	ctx, span := tracing.StartSpan(ctx, "checkpoint.Repository.Delete")
	defer span.End()

	dlb := database.NewDeleteBuilder()
	dlb.DeleteFrom("job_checkpoints")
	dlb.Where(dlb.Equal("job_name", jobName))

	query, args := dlb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("job_name", jobName).Error("Failed to delete checkpoint")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete checkpoint")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no checkpoint for job %s", jobName))
	}
	return nil
}
