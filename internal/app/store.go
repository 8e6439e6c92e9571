package app

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/internal/repositories/affair"
	"github.com/Ramsey-B/iris/internal/repositories/checkpoint"
	"github.com/Ramsey-B/iris/internal/repositories/duplicatereview"
	"github.com/Ramsey-B/iris/internal/repositories/externallink"
	"github.com/Ramsey-B/iris/internal/repositories/mandate"
	"github.com/Ramsey-B/iris/internal/repositories/politician"
	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/duplicates"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/linking"
	"github.com/Ramsey-B/iris/pkg/mandates"
	"github.com/Ramsey-B/iris/pkg/merging"
	"github.com/Ramsey-B/iris/pkg/models"
)

var (
	_ linking.Store           = (*Store)(nil)
	_ merging.Store           = (*Store)(nil)
	_ merging.ReviewStore     = (*Store)(nil)
	_ mandates.Store          = (*Store)(nil)
	_ duplicates.AffairLister = (*Store)(nil)
	_ duplicates.ReviewQueue  = (*Store)(nil)
	_ jobs.CheckpointStore    = (*Store)(nil)
)

// Store puts the repositories behind the store interfaces the core packages declare
type Store struct {
	db          database.DB
	politicians *politician.Repository
	links       *externallink.Repository
	mandates    *mandate.Repository
	affairs     *affair.Repository
	reviews     *duplicatereview.Repository
	checkpoints *checkpoint.Repository
}

func NewStore(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		db:          db,
		politicians: politician.NewRepository(db, logger),
		links:       externallink.NewRepository(db, logger),
		mandates:    mandate.NewRepository(db, logger),
		affairs:     affair.NewRepository(db, logger),
		reviews:     duplicatereview.NewRepository(db, logger),
		checkpoints: checkpoint.NewRepository(db, logger),
	}
}

func (s *Store) Politicians() *politician.Repository  { return s.politicians }
func (s *Store) Links() *externallink.Repository      { return s.links }
func (s *Store) Mandates() *mandate.Repository        { return s.mandates }
func (s *Store) Affairs() *affair.Repository          { return s.affairs }
func (s *Store) Reviews() *duplicatereview.Repository { return s.reviews }
func (s *Store) Checkpoints() *checkpoint.Repository  { return s.checkpoints }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.InTx(ctx, fn)
}

// linking

func (s *Store) ListUnlinkedPoliticians(ctx context.Context, source models.SourceTag) ([]models.Politician, error) {
	return s.politicians.ListUnlinked(ctx, source)
}

func (s *Store) ListLinks(ctx context.Context, source models.SourceTag) ([]models.ExternalLink, error) {
	return s.links.ListBySource(ctx, source)
}

func (s *Store) FindLink(ctx context.Context, source models.SourceTag, externalID string) (*models.ExternalLink, error) {
	return s.links.FindBySourceID(ctx, source, externalID)
}

func (s *Store) FindPoliticianLink(ctx context.Context, source models.SourceTag, politicianID string) (*models.ExternalLink, error) {
	return s.links.FindByPolitician(ctx, source, politicianID)
}

func (s *Store) UpsertLink(ctx context.Context, link *models.ExternalLink) (bool, error) {
	return s.links.Upsert(ctx, link)
}

func (s *Store) CreatePolitician(ctx context.Context, p *models.Politician) error {
	return s.politicians.Create(ctx, p)
}

func (s *Store) UpsertMandate(ctx context.Context, m *models.Mandate) error {
	return s.mandates.Upsert(ctx, m)
}

// merging

// GetAffairRecord loads an affair with its sources and links
func (s *Store) GetAffairRecord(ctx context.Context, id string) (*models.AffairRecord, error) {
	a, err := s.affairs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sources, err := s.affairs.ListSources(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources of affair %s: %w", id, err)
	}
	links, err := s.links.ListByAffair(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load links of affair %s: %w", id, err)
	}
	return &models.AffairRecord{Affair: *a, Sources: sources, Links: links}, nil
}

func (s *Store) MoveSources(ctx context.Context, sourceIDs []string, affairID string) error {
	return s.affairs.MoveSources(ctx, sourceIDs, affairID)
}

func (s *Store) MoveLinks(ctx context.Context, linkIDs []string, affairID string) error {
	return s.links.MoveToAffair(ctx, linkIDs, affairID)
}

func (s *Store) DeleteAffair(ctx context.Context, id string) error {
	return s.affairs.Delete(ctx, id)
}

func (s *Store) ResolveMerged(ctx context.Context, survivorID, loserID string) error {
	return s.reviews.ResolveMerged(ctx, survivorID, loserID)
}

// mandates

func (s *Store) ListOpenMandates(ctx context.Context) ([]models.Mandate, error) {
	return s.mandates.ListOpen(ctx)
}

func (s *Store) CloseMandates(ctx context.Context, closures []models.MandateClosure) error {
	return s.mandates.Close(ctx, closures)
}

// duplicates

func (s *Store) ListAffairs(ctx context.Context) ([]models.Affair, error) {
	return s.affairs.List(ctx)
}

func (s *Store) Enqueue(ctx context.Context, pairs []models.DuplicatePair) (int, error) {
	return s.reviews.Enqueue(ctx, pairs)
}

// jobs

func (s *Store) Load(ctx context.Context, jobName string) (*models.Checkpoint, error) {
	return s.checkpoints.Load(ctx, jobName)
}

func (s *Store) Save(ctx context.Context, cp *models.Checkpoint) error {
	return s.checkpoints.Save(ctx, cp)
}
