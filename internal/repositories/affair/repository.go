package affair

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

var (
	columns       = []string{"id", "politician_id", "title", "description", "category", "status", "facts_date", "start_date", "verdict_date", "created_at", "updated_at"}
	sourceColumns = []string{"id", "affair_id", "url", "title", "publisher", "published_at", "created_at"}
)

// Repository handles affair and affair source persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new affair repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an affair
func (r *Repository) Create(ctx context.Context, a *models.Affair) error {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.Create")
	defer span.End()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("affairs")
	ib.Cols(columns...)
	ib.Values(a.ID, a.PoliticianID, a.Title, a.Description, a.Category, a.Status, a.FactsDate, a.StartDate, a.VerdictDate, a.CreatedAt, a.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", a.ID).Error("Failed to create affair")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create affair")
	}
	return nil
}

// AddSource attaches a citation to an affair
func (r *Repository) AddSource(ctx context.Context, s *models.AffairSource) error {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.AddSource")
	defer span.End()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("affair_sources")
	ib.Cols(sourceColumns...)
	ib.Values(s.ID, s.AffairID, s.URL, s.Title, s.Publisher, s.PublishedAt, s.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", s.AffairID).Error("Failed to add affair source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add affair source")
	}
	return nil
}

// Get retrieves an affair by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Affair, error) {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("affairs")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var a models.Affair
	if err := r.db.Conn(ctx).GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("affair %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get affair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get affair")
	}
	return &a, nil
}

// List returns every affair ordered by politician then id
func (r *Repository) List(ctx context.Context) ([]models.Affair, error) {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("affairs")
	sb.OrderBy("politician_id", "id")

	query, args := sb.Build()
	var affairs []models.Affair
	if err := r.db.Conn(ctx).SelectContext(ctx, &affairs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list affairs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list affairs")
	}
	return affairs, nil
}

// ListSources returns the citations of an affair in insertion order
func (r *Repository) ListSources(ctx context.Context, affairID string) ([]models.AffairSource, error) {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.ListSources")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(sourceColumns...)
	sb.From("affair_sources")
	sb.Where(sb.Equal("affair_id", affairID))
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var sources []models.AffairSource
	if err := r.db.Conn(ctx).SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", affairID).Error("Failed to list affair sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list affair sources")
	}
	return sources, nil
}

// MoveSources reassigns citations to affairID
func (r *Repository) MoveSources(ctx context.Context, ids []string, affairID string) error {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.MoveSources")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	ub := database.NewUpdateBuilder()
	ub.Update("affair_sources")
	ub.Set(ub.Assign("affair_id", affairID))
	ub.Where(ub.In("id", sqlbuilder.List(ids)))

	query, args := ub.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", affairID).Error("Failed to move affair sources")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to move affair sources")
	}
	return nil
}

// Delete removes an affair; its remaining sources and links go with it
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "affair.Repository.Delete")
	defer span.End()

	dlb := database.NewDeleteBuilder()
	dlb.DeleteFrom("affairs")
	dlb.Where(dlb.Equal("id", id))

	query, args := dlb.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", id).Error("Failed to delete affair")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete affair")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("affair %s not found", id))
	}
	return nil
}
