package politician

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

	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

var columns = []string{"id", "first_name", "last_name", "full_name", "birth_date", "death_date", "created_at", "updated_at"}

// Repository handles politician persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new politician repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a politician, assigning an id when it has none
func (r *Repository) Create(ctx context.Context, p *models.Politician) error {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.Create")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("politicians")
	ib.Cols(columns...)
	ib.Values(p.ID, p.FirstName, p.LastName, p.FullName, p.BirthDate, p.DeathDate, p.CreatedAt, p.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("politician_id", p.ID).Error("Failed to create politician")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create politician")
	}
	return nil
}

// Get retrieves a politician by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Politician, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("politicians")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var p models.Politician
	if err := r.db.Conn(ctx).GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("politician %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get politician")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get politician")
	}
	return &p, nil
}

// ListUnlinked returns every politician holding no link from source, the matching pool of a sync run
func (r *Repository) ListUnlinked(ctx context.Context, source models.SourceTag) ([]models.Politician, error) {
	ctx, span := tracing.StartSpan(ctx, "politician.Repository.ListUnlinked")
	defer span.End()

	query := `
		SELECT p.id, p.first_name, p.last_name, p.full_name, p.birth_date, p.death_date, p.created_at, p.updated_at
		FROM politicians p
		WHERE NOT EXISTS (
			SELECT 1 FROM external_links l
			WHERE l.politician_id = p.id AND l.source = $1
		)
		ORDER BY p.id
	`

	var politicians []models.Politician
	if err := r.db.Conn(ctx).SelectContext(ctx, &politicians, query, source); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("source", source).Error("Failed to list unlinked politicians")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list politicians")
	}
	return politicians, nil
}
