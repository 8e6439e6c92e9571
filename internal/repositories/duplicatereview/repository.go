package duplicatereview

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

var columns = []string{
	"id", "left_id", "right_id", "politician_id", "score", "confidence", "matched_by", "title_similarity",
	"days_apart", "status", "survivor_id", "created_at", "updated_at", "resolved_at",
}

// Repository handles the duplicate review queue
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new duplicate review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Enqueue queues pairs as PENDING reviews and returns how many were new.
// A pair already queued, in either order, keeps its existing review.
func (r *Repository) Enqueue(ctx context.Context, pairs []models.DuplicatePair) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatereview.Repository.Enqueue")
	defer span.End()

	now := time.Now().UTC()
	queued := 0
	for _, pair := range pairs {
		left, right := pair.LeftID, pair.RightID
		if right < left {
			left, right = right, left
		}

		ib := database.NewInsertBuilder()
		ib.InsertInto("duplicate_reviews")
		ib.Cols(columns...)
		ib.Values(uuid.New().String(), left, right, pair.PoliticianID, pair.Score, pair.Confidence, pair.MatchedBy, pair.TitleSimilarity,
			pair.DaysApart, models.DuplicateReviewPending, nil, now, now, nil)
		ib.OnConflictDoNothing()

		query, args := ib.Build()
		result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"left_id":  left,
				"right_id": right,
			}).Error("Failed to enqueue duplicate pair")
			return queued, httperror.NewHTTPError(http.StatusInternalServerError, "failed to enqueue duplicate pair")
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 1 {
			queued++
		}
	}
	return queued, nil
}

// ListPending returns PENDING reviews, strongest first
func (r *Repository) ListPending(ctx context.Context) ([]models.DuplicateReview, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatereview.Repository.ListPending")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("duplicate_reviews")
	sb.Where(sb.Equal("status", models.DuplicateReviewPending))
	sb.OrderBy("score DESC", "id")

	query, args := sb.Build()
	var reviews []models.DuplicateReview
	if err := r.db.Conn(ctx).SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list duplicate reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list duplicate reviews")
	}
	return reviews, nil
}

// ResolveMerged marks the review of the merged pair MERGED and dismisses every other
// pending review that still points at the deleted affair.
func (r *Repository) ResolveMerged(ctx context.Context, survivorID, loserID string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatereview.Repository.ResolveMerged")
	defer span.End()

	now := time.Now().UTC()

	merged := database.NewUpdateBuilder()
	merged.Update("duplicate_reviews")
	merged.Set(
		merged.Assign("status", models.DuplicateReviewMerged),
		merged.Assign("survivor_id", survivorID),
		merged.Assign("resolved_at", now),
		merged.Assign("updated_at", now),
	)
	merged.Where(
		merged.Equal("status", models.DuplicateReviewPending),
		merged.Or(
			merged.And(merged.Equal("left_id", survivorID), merged.Equal("right_id", loserID)),
			merged.And(merged.Equal("left_id", loserID), merged.Equal("right_id", survivorID)),
		),
	)
	if err := r.exec(ctx, merged); err != nil {
		return err
	}

	stale := database.NewUpdateBuilder()
	stale.Update("duplicate_reviews")
	stale.Set(
		stale.Assign("status", models.DuplicateReviewDismissed),
		stale.Assign("resolved_at", now),
		stale.Assign("updated_at", now),
	)
	stale.Where(
		stale.Equal("status", models.DuplicateReviewPending),
		stale.Or(stale.Equal("left_id", loserID), stale.Equal("right_id", loserID)),
	)
	return r.exec(ctx, stale)
}

// Dismiss closes a pending review without merging
func (r *Repository) Dismiss(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatereview.Repository.Dismiss")
	defer span.End()

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update("duplicate_reviews")
	ub.Set(
		ub.Assign("status", models.DuplicateReviewDismissed),
		ub.Assign("resolved_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("status", models.DuplicateReviewPending))

	query, args := ub.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("review_id", id).Error("Failed to dismiss duplicate review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to dismiss duplicate review")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending review %s not found", id))
	}
	return nil
}

func (r *Repository) exec(ctx context.Context, ub *database.UpdateBuilder) error {
	query, args := ub.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve duplicate reviews")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve duplicate reviews")
	}
	return nil
}
