package merging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/models"
)

type memoryStore struct {
	affairs   map[string]models.Affair
	sources   []models.AffairSource
	links     []models.ExternalLink
	failOn    string
	committed int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{affairs: make(map[string]models.Affair)}
}

func (s *memoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	affairs := make(map[string]models.Affair, len(s.affairs))
	for k, v := range s.affairs {
		affairs[k] = v
	}
	sources := append([]models.AffairSource(nil), s.sources...)
	links := append([]models.ExternalLink(nil), s.links...)

	if err := fn(ctx); err != nil {
		s.affairs, s.sources, s.links = affairs, sources, links
		return err
	}
	s.committed++
	return nil
}

func (s *memoryStore) GetAffairRecord(_ context.Context, id string) (*models.AffairRecord, error) {
	affair, ok := s.affairs[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("affair %s not found", id))
	}
	rec := &models.AffairRecord{Affair: affair}
	for _, src := range s.sources {
		if src.AffairID == id {
			rec.Sources = append(rec.Sources, src)
		}
	}
	for _, l := range s.links {
		if l.AffairID != nil && *l.AffairID == id {
			rec.Links = append(rec.Links, l)
		}
	}
	return rec, nil
}

func (s *memoryStore) MoveSources(_ context.Context, ids []string, affairID string) error {
	for _, id := range ids {
		for i := range s.sources {
			if s.sources[i].ID == id {
				s.sources[i].AffairID = affairID
			}
		}
	}
	return nil
}

func (s *memoryStore) MoveLinks(_ context.Context, ids []string, affairID string) error {
	for _, id := range ids {
		for i := range s.links {
			if s.links[i].ID == id {
				target := affairID
				s.links[i].AffairID = &target
			}
		}
	}
	return nil
}

func (s *memoryStore) DeleteAffair(_ context.Context, id string) error {
	if s.failOn == "delete" {
		return errors.New("connection reset")
	}
	delete(s.affairs, id)
	kept := s.sources[:0]
	for _, src := range s.sources {
		if src.AffairID != id {
			kept = append(kept, src)
		}
	}
	s.sources = kept
	keptLinks := s.links[:0]
	for _, l := range s.links {
		if l.AffairID == nil || *l.AffairID != id {
			keptLinks = append(keptLinks, l)
		}
	}
	s.links = keptLinks
	return nil
}

func (s *memoryStore) addAffair(id string, created time.Time, urls ...string) {
	s.affairs[id] = models.Affair{ID: id, PoliticianID: "pol-1", Title: "Affaire des assistants", CreatedAt: created}
	for i, url := range urls {
		s.sources = append(s.sources, models.AffairSource{ID: fmt.Sprintf("%s-src-%d", id, i), AffairID: id, URL: url})
	}
}

func (s *memoryStore) addLink(id, affairID string, source models.SourceTag, externalID string) {
	owner := affairID
	s.links = append(s.links, models.ExternalLink{ID: id, Source: source, ExternalID: externalID, AffairID: &owner, Confidence: 0.7, MatchedBy: models.MatchedByNameOnly})
}

type reviewRecorder struct {
	resolved [][2]string
}

func (r *reviewRecorder) ResolveMerged(_ context.Context, survivorID, loserID string) error {
	r.resolved = append(r.resolved, [2]string{survivorID, loserID})
	return nil
}

type mergeEvents struct {
	events.Noop
	merged []events.MergeDetails
}

func (m *mergeEvents) EmitAffairMerged(_ context.Context, d events.MergeDetails) error {
	m.merged = append(m.merged, d)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

var (
	t0 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
)

func threeIntoOne() *memoryStore {
	s := newMemoryStore()
	s.addAffair("A", t1,
		"https://www.lemonde.fr/a",
		"https://www.liberation.fr/b",
		" https://www.mediapart.fr/shared ",
	)
	s.addAffair("B", t0, "https://www.mediapart.fr/shared")
	return s
}

func TestEngine_MergeIntoPreservesProvenance(t *testing.T) {
	ctx := context.Background()
	store := threeIntoOne()
	reviews := &reviewRecorder{}
	emitted := &mergeEvents{}
	engine := NewEngine(store, reviews, emitted, testLogger())

	result, err := engine.MergeInto(ctx, "B", "A", Options{})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, ReasonCallerChosen, result.Plan.Reason)

	survivor, err := store.GetAffairRecord(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, survivor.Sources, 3)
	assert.Equal(t, 3, result.Plan.SourceCount)
	assert.Len(t, result.Plan.SkipSources, 1)

	_, err = store.GetAffairRecord(ctx, "A")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	assert.Equal(t, [][2]string{{"B", "A"}}, reviews.resolved)
	require.Len(t, emitted.merged, 1)
	assert.Equal(t, 2, emitted.merged[0].MovedSources)
}

func TestEngine_MergeDistinctSourcesKeepsUnion(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.addAffair("A", t1, "https://a.fr/1", "https://a.fr/2", "https://a.fr/3")
	store.addAffair("B", t0, "https://b.fr/1")

	_, err := NewEngine(store, nil, nil, testLogger()).MergeInto(ctx, "B", "A", Options{})
	require.NoError(t, err)

	survivor, err := store.GetAffairRecord(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, survivor.Sources, 4)
}

func TestEngine_MergeUsesSurvivorPolicy(t *testing.T) {
	ctx := context.Background()
	store := threeIntoOne()

	result, err := NewEngine(store, nil, nil, testLogger()).Merge(ctx, models.DuplicatePair{LeftID: "A", RightID: "B"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "A", result.Plan.SurvivorID)
	assert.Equal(t, ReasonMoreSources, result.Plan.Reason)

	_, err = store.GetAffairRecord(ctx, "B")
	assert.Error(t, err)
}

func TestEngine_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := threeIntoOne()
	reviews := &reviewRecorder{}

	result, err := NewEngine(store, reviews, nil, testLogger()).MergeInto(ctx, "B", "A", Options{DryRun: true})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Len(t, result.Plan.MoveSources, 2)

	_, err = store.GetAffairRecord(ctx, "A")
	assert.NoError(t, err)
	assert.Empty(t, reviews.resolved)
}

func TestEngine_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := threeIntoOne()
	store.failOn = "delete"

	_, err := NewEngine(store, nil, nil, testLogger()).MergeInto(ctx, "B", "A", Options{})
	require.Error(t, err)

	a, err := store.GetAffairRecord(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, a.Sources, 3)

	b, err := store.GetAffairRecord(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, b.Sources, 1)
}

func TestEngine_MissingAffair(t *testing.T) {
	store := threeIntoOne()
	_, err := NewEngine(store, nil, nil, testLogger()).MergeInto(context.Background(), "B", "Z", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "affair Z")
	assert.Len(t, store.affairs, 2)
}

func TestEngine_LinksMovedUnlessSourceHeld(t *testing.T) {
	ctx := context.Background()
	store := threeIntoOne()
	store.addLink("l1", "A", models.SourcePresse, "lemonde-123")
	store.addLink("l2", "A", models.SourceWikipedia, "Affaire_X")
	store.addLink("l3", "B", models.SourcePresse, "mediapart-9")

	result, err := NewEngine(store, nil, nil, testLogger()).MergeInto(ctx, "B", "A", Options{})
	require.NoError(t, err)

	require.Len(t, result.Plan.MoveLinks, 1)
	assert.Equal(t, "l2", result.Plan.MoveLinks[0].ID)
	require.Len(t, result.Plan.SkipLinks, 1)
	assert.Equal(t, "l1", result.Plan.SkipLinks[0].ID)

	b, err := store.GetAffairRecord(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, b.Links, 2)
}
