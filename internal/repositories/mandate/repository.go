package mandate

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// StartWindowDays is how far apart two start dates of the same office may be and still
// describe the same mandate. Providers disagree on installation versus election day.
const StartWindowDays = 31

var columns = []string{
	"id", "politician_id", "type", "title", "constituency", "renewal_series", "start_date", "end_date",
	"is_current", "needs_review", "review_reason", "source", "created_at", "updated_at",
}

// Repository handles mandate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mandate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes m, updating the mandate of the same politician and type whose start date
// lies within StartWindowDays of m's instead of inserting a second one.
func (r *Repository) Upsert(ctx context.Context, m *models.Mandate) error {
	ctx, span := tracing.StartSpan(ctx, "mandate.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	start := models.Day(m.StartDate)
	window := StartWindowDays * 24 * time.Hour

	sb := database.NewSelectBuilder()
	sb.Select("id")
	sb.From("mandates")
	sb.Where(
		sb.Equal("politician_id", m.PoliticianID),
		sb.Equal("type", m.Type),
		sb.Between("start_date", start.Add(-window), start.Add(window)),
	)
	sb.OrderBy("start_date")
	sb.Limit(1)

	query, args := sb.Build()
	var existingID string
	err := r.db.Conn(ctx).GetContext(ctx, &existingID, query, args...)
	switch {
	case err == nil:
		m.ID = existingID
		return r.update(ctx, m, now)
	case !errors.Is(err, sql.ErrNoRows):
		r.logger.WithContext(ctx).WithError(err).WithField("politician_id", m.PoliticianID).Error("Failed to look up mandate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert mandate")
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.StartDate = start
	m.CreatedAt, m.UpdatedAt = now, now

	ib := database.NewInsertBuilder()
	ib.InsertInto("mandates")
	ib.Cols(columns...)
	ib.Values(m.ID, m.PoliticianID, m.Type, m.Title, m.Constituency, m.RenewalSeries, m.StartDate, m.EndDate,
		m.IsCurrent, m.NeedsReview, m.ReviewReason, m.Source, m.CreatedAt, m.UpdatedAt)

	query, args = ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("mandate_id", m.ID).Error("Failed to insert mandate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert mandate")
	}
	return nil
}

func (r *Repository) update(ctx context.Context, m *models.Mandate, now time.Time) error {
	ub := database.NewUpdateBuilder()
	ub.Update("mandates")
	assignments := []string{
		ub.Assign("end_date", m.EndDate),
		ub.Assign("is_current", m.IsCurrent),
		ub.Assign("updated_at", now),
	}
	if m.Title != "" {
		assignments = append(assignments, ub.Assign("title", m.Title))
	}
	if m.Constituency != "" {
		assignments = append(assignments, ub.Assign("constituency", m.Constituency))
	}
	if m.RenewalSeries != nil {
		assignments = append(assignments, ub.Assign("renewal_series", *m.RenewalSeries))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", m.ID))

	query, args := ub.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("mandate_id", m.ID).Error("Failed to update mandate")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert mandate")
	}
	return nil
}

// ListOpen returns every mandate in the OPEN state
func (r *Repository) ListOpen(ctx context.Context) ([]models.Mandate, error) {
	ctx, span := tracing.StartSpan(ctx, "mandate.Repository.ListOpen")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("mandates")
	sb.Where("is_current", sb.IsNull("end_date"))
	sb.OrderBy("id")

	return r.list(ctx, sb)
}

// ListByPolitician returns a politician's mandates, oldest first
func (r *Repository) ListByPolitician(ctx context.Context, politicianID string) ([]models.Mandate, error) {
	ctx, span := tracing.StartSpan(ctx, "mandate.Repository.ListByPolitician")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("mandates")
	sb.Where(sb.Equal("politician_id", politicianID))
	sb.OrderBy("start_date", "id")

	return r.list(ctx, sb)
}

func (r *Repository) list(ctx context.Context, sb *database.SelectBuilder) ([]models.Mandate, error) {
	query, args := sb.Build()

	var mandates []models.Mandate
	if err := r.db.Conn(ctx).SelectContext(ctx, &mandates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list mandates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list mandates")
	}
	return mandates, nil
}

// Close applies closures. A mandate that is no longer open is left untouched.
func (r *Repository) Close(ctx context.Context, closures []models.MandateClosure) error {
	ctx, span := tracing.StartSpan(ctx, "mandate.Repository.Close")
	defer span.End()

	now := time.Now().UTC()
	for _, c := range closures {
		ub := database.NewUpdateBuilder()
		ub.Update("mandates")
		ub.Set(
			ub.Assign("end_date", models.Day(c.EndDate)),
			ub.Assign("is_current", false),
			ub.Assign("needs_review", c.NeedsReview),
			ub.Assign("review_reason", c.ReviewReason),
			ub.Assign("updated_at", now),
		)
		ub.Where(ub.Equal("id", c.MandateID), ub.IsNull("end_date"))

		query, args := ub.Build()
		if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("mandate_id", c.MandateID).Error("Failed to close mandate")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close mandate")
		}
	}
	return nil
}
