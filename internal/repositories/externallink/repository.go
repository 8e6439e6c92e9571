package externallink

import (
	"context"
	"database/sql"
	"errors"
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

var columns = []string{"id", "source", "external_id", "politician_id", "affair_id", "party_id", "confidence", "matched_by", "created_at", "updated_at"}

// Repository handles external link persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new external link repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts link unless (source, external_id) is already taken, and reports whether
// a row was written. An existing link is never reassigned.
func (r *Repository) Upsert(ctx context.Context, link *models.ExternalLink) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.Upsert")
	defer span.End()

	if err := link.Validate(); err != nil {
		return false, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
		link.UpdatedAt = link.CreatedAt
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("external_links")
	ib.Cols(columns...)
	ib.Values(link.ID, link.Source, link.ExternalID, link.PoliticianID, link.AffairID, link.PartyID, link.Confidence, link.MatchedBy, link.CreatedAt, link.UpdatedAt)
	ib.OnConflictUpdate([]string{"source", "external_id"})

	query, args := ib.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":      link.Source,
			"external_id": link.ExternalID,
		}).Error("Failed to upsert external link")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert external link")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert external link")
	}
	return affected == 1, nil
}

// FindBySourceID returns the link for (source, externalID), or nil when there is none
func (r *Repository) FindBySourceID(ctx context.Context, source models.SourceTag, externalID string) (*models.ExternalLink, error) {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.FindBySourceID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_links")
	sb.Where(sb.Equal("source", source), sb.Equal("external_id", externalID))

	return r.findOne(ctx, sb)
}

// FindByPolitician returns the link politicianID holds from source, or nil
func (r *Repository) FindByPolitician(ctx context.Context, source models.SourceTag, politicianID string) (*models.ExternalLink, error) {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.FindByPolitician")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_links")
	sb.Where(sb.Equal("source", source), sb.Equal("politician_id", politicianID))

	return r.findOne(ctx, sb)
}

func (r *Repository) findOne(ctx context.Context, sb *database.SelectBuilder) (*models.ExternalLink, error) {
	sb.Limit(1)
	query, args := sb.Build()

	var link models.ExternalLink
	if err := r.db.Conn(ctx).GetContext(ctx, &link, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get external link")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get external link")
	}
	return &link, nil
}

// ListBySource returns every link from source
func (r *Repository) ListBySource(ctx context.Context, source models.SourceTag) ([]models.ExternalLink, error) {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.ListBySource")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_links")
	sb.Where(sb.Equal("source", source))
	sb.OrderBy("external_id")

	return r.list(ctx, sb)
}

// ListByAffair returns the links owned by an affair
func (r *Repository) ListByAffair(ctx context.Context, affairID string) ([]models.ExternalLink, error) {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.ListByAffair")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("external_links")
	sb.Where(sb.Equal("affair_id", affairID))
	sb.OrderBy("created_at", "id")

	return r.list(ctx, sb)
}

func (r *Repository) list(ctx context.Context, sb *database.SelectBuilder) ([]models.ExternalLink, error) {
	query, args := sb.Build()

	var links []models.ExternalLink
	if err := r.db.Conn(ctx).SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list external links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list external links")
	}
	return links, nil
}

// MoveToAffair reassigns the given affair links to affairID
func (r *Repository) MoveToAffair(ctx context.Context, ids []string, affairID string) error {
	ctx, span := tracing.StartSpan(ctx, "externallink.Repository.MoveToAffair")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	ub := database.NewUpdateBuilder()
	ub.Update("external_links")
	ub.Set(ub.Assign("affair_id", affairID), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.In("id", sqlbuilder.List(ids)), ub.IsNotNull("affair_id"))

	query, args := ub.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("affair_id", affairID).Error("Failed to move external links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to move external links")
	}
	return nil
}
