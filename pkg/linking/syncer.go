// Package linking attaches provider records to existing politicians through external links
package linking

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/iris/pkg/confidence"
	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/mandates"
	"github.com/Ramsey-B/iris/pkg/matching"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
	"github.com/Ramsey-B/iris/pkg/validation"
)

// Outcomes of one candidate record
const (
	OutcomeLinked        jobs.Outcome = "LINKED"
	OutcomeCreated       jobs.Outcome = "CREATED"
	OutcomeAlreadyLinked jobs.Outcome = "ALREADY_LINKED"
	OutcomeConflict      jobs.Outcome = "CONFLICT"
	OutcomeNoMatch       jobs.Outcome = "NO_MATCH"
	OutcomeAmbiguous     jobs.Outcome = "AMBIGUOUS"
	// OutcomeMatched is a match for a record without an external id: nothing to link
	OutcomeMatched jobs.Outcome = "MATCHED"
)

// PivotSources returns the sources whose links are loaded as pivot identifiers when
// syncing source. Wikidata records carry the parliamentary ids; everyone else carries a Q-id.
func PivotSources(source models.SourceTag) []models.SourceTag {
	if source == models.SourceWikidata {
		return []models.SourceTag{
			models.SourceAssembleeNationale,
			models.SourceSenat,
			models.SourceParlementEuropeen,
		}
	}
	return []models.SourceTag{models.SourceWikidata}
}

// Store is the persistence the syncer needs
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	// ListUnlinkedPoliticians returns politicians with no link from source
	ListUnlinkedPoliticians(ctx context.Context, source models.SourceTag) ([]models.Politician, error)
	ListLinks(ctx context.Context, source models.SourceTag) ([]models.ExternalLink, error)
	// FindLink returns nil, nil when (source, externalID) is not linked
	FindLink(ctx context.Context, source models.SourceTag, externalID string) (*models.ExternalLink, error)
	FindPoliticianLink(ctx context.Context, source models.SourceTag, politicianID string) (*models.ExternalLink, error)
	// UpsertLink inserts on the (source, external_id) natural key and reports whether a row was created
	UpsertLink(ctx context.Context, link *models.ExternalLink) (bool, error)
	CreatePolitician(ctx context.Context, politician *models.Politician) error
	UpsertMandate(ctx context.Context, mandate *models.Mandate) error
}

// Reconciler is the mandate consistency pass run after a sync that wrote mandates
type Reconciler interface {
	Reconcile(ctx context.Context, opts mandates.Options) (*mandates.Result, error)
}

// Config controls a sync run
type Config struct {
	// CreateMissing creates a politician for records with no name match at all
	CreateMissing bool
	DryRun        bool
	// Matcher defaults to matching.DefaultConfig when nil
	Matcher *matching.Config
}

// Syncer links one source's candidate records. A Syncer serves a single run.
type Syncer struct {
	store      Store
	matcher    *matching.Matcher
	emitter    events.Emitter
	reconciler Reconciler
	logger     ectologger.Logger
	config     Config
	now        func() time.Time

	mandatesWritten int
}

// NewSyncer creates a syncer. emitter may be nil.
func NewSyncer(store Store, emitter events.Emitter, logger ectologger.Logger, config Config) *Syncer {
	if emitter == nil {
		emitter = events.Noop{}
	}
	matcherConfig := matching.DefaultConfig()
	if config.Matcher != nil {
		matcherConfig = *config.Matcher
	}
	return &Syncer{
		store:   store,
		matcher: matching.NewMatcher(matcherConfig),
		emitter: emitter,
		logger:  logger,
		config:  config,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithReconciler runs r once the batch completes if any mandate was written
func (s *Syncer) WithReconciler(r Reconciler) *Syncer {
	s.reconciler = r
	return s
}

// JobName is the checkpoint name of a sync run for source
func JobName(source models.SourceTag) string {
	return "sync-" + string(source)
}

// RecordKey is the checkpoint key of a candidate record
func RecordKey(c models.CandidateRecord) string {
	return c.Key()
}

// Prepare builds the matching pool for source: politicians not yet linked to it, with
// pivot identifiers indexed.
func (s *Syncer) Prepare(ctx context.Context, source models.SourceTag) (*matching.Pool, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Syncer.Prepare")
	defer span.End()

	politicians, err := s.store.ListUnlinkedPoliticians(ctx, source)
	if err != nil {
		return nil, jobs.Fatal(fmt.Errorf("failed to load politicians for %s: %w", source, err))
	}
	pool := matching.NewPool(politicians)

	for _, pivot := range PivotSources(source) {
		links, err := s.store.ListLinks(ctx, pivot)
		if err != nil {
			return nil, jobs.Fatal(fmt.Errorf("failed to load %s pivots: %w", pivot, err))
		}
		for _, l := range links {
			if l.PoliticianID != nil {
				pool.AddPivot(pivot, l.ExternalID, *l.PoliticianID)
			}
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"source": source,
		"pool":   pool.Len(),
	}).Info("Prepared matching pool")

	return pool, nil
}

// Sync runs the records of one source through runner
func (s *Syncer) Sync(
	ctx context.Context,
	runner *jobs.Runner[models.CandidateRecord],
	source models.SourceTag,
	records []models.CandidateRecord,
	resume bool,
) (*models.Checkpoint, *jobs.Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "linking.Syncer.Sync")
	defer span.End()

	pool, err := s.Prepare(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	cp, err := runner.Begin(ctx, JobName(source), resume)
	if err != nil {
		return nil, nil, err
	}

	cp, summary, err := runner.Run(ctx, cp, records, s.Handler(pool))
	if err != nil {
		return cp, summary, err
	}
	return cp, summary, s.reconcile(ctx)
}

func (s *Syncer) reconcile(ctx context.Context) error {
	if s.reconciler == nil || s.config.DryRun || s.mandatesWritten == 0 {
		return nil
	}

	result, err := s.reconciler.Reconcile(ctx, mandates.Options{})
	if err != nil {
		return jobs.Fatal(fmt.Errorf("mandate reconciliation after sync: %w", err))
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"mandates_written": s.mandatesWritten,
		"closures":         len(result.Closures),
	}).Info("Reconciled mandates after sync")
	return nil
}

// Handler processes one candidate record against pool. Linked politicians leave the pool.
func (s *Syncer) Handler(pool *matching.Pool) jobs.Handler[models.CandidateRecord] {
	return func(ctx context.Context, record models.CandidateRecord) (jobs.Outcome, error) {
		ctx, span := tracing.StartSpan(ctx, "linking.Syncer.Handle")
		defer span.End()

		log := s.logger.WithContext(ctx).WithFields(map[string]any{
			"source":      record.Source,
			"external_id": record.ExternalID,
			"key":         record.Key(),
		})

		if err := validation.Struct(record); err != nil {
			return "", jobs.NewProviderError(string(record.Source), record.Key(), err)
		}

		match := s.matcher.Match(record, pool)

		if record.ExternalID != "" {
			existing, err := s.store.FindLink(ctx, record.Source, record.ExternalID)
			if err != nil {
				return "", jobs.Fatal(fmt.Errorf("failed to look up link %s/%s: %w", record.Source, record.ExternalID, err))
			}
			if existing != nil {
				return s.alreadyLinked(ctx, log, record, existing, match)
			}
		}

		switch match.Outcome {
		case models.MatchOutcomeAmbiguous:
			log.WithField("name_matches", match.NameMatches).Info("Ambiguous match, record skipped")
			return OutcomeAmbiguous, nil
		case models.MatchOutcomeNoMatch:
			if s.config.CreateMissing && match.Basis == models.MatchBasisNoNameMatch {
				return s.create(ctx, log, record, pool)
			}
			log.WithField("basis", match.Basis).Debug("No match")
			return OutcomeNoMatch, nil
		}

		return s.link(ctx, log, record, match, pool)
	}
}

// alreadyLinked handles a record whose external id is linked. When the record resolves
// by date or pivot to a different, unlinked politician the id is reported as conflicting
// and left alone. A bare name match is not enough: the owner may be a homonym.
func (s *Syncer) alreadyLinked(
	ctx context.Context,
	log ectologger.Logger,
	record models.CandidateRecord,
	existing *models.ExternalLink,
	match models.MatchCandidate,
) (jobs.Outcome, error) {
	_, ownerID := existing.Owner()

	if strongMatch(match) && match.PoliticianID != ownerID {
		log.WithFields(map[string]any{
			"owner_id":   ownerID,
			"matched_id": match.PoliticianID,
		}).Warn("External id already claims a different politician")
		return OutcomeConflict, nil
	}

	if existing.PoliticianID != nil && len(record.Mandates) > 0 && !s.config.DryRun {
		err := s.store.InTx(ctx, func(ctx context.Context) error {
			return s.attachMandates(ctx, record, ownerID)
		})
		if err != nil {
			return "", jobs.Fatal(err)
		}
	}
	return OutcomeAlreadyLinked, nil
}

func strongMatch(match models.MatchCandidate) bool {
	if match.Outcome != models.MatchOutcomeMatched {
		return false
	}
	switch match.Basis {
	case models.MatchBasisNameBirthDate, models.MatchBasisNameDeathDate, models.MatchBasisPivot:
		return true
	}
	return false
}

func (s *Syncer) link(
	ctx context.Context,
	log ectologger.Logger,
	record models.CandidateRecord,
	match models.MatchCandidate,
	pool *matching.Pool,
) (jobs.Outcome, error) {
	politicianID := match.PoliticianID
	log = log.WithFields(map[string]any{"politician_id": politicianID, "basis": match.Basis})

	if record.ExternalID == "" {
		if !s.config.DryRun && len(record.Mandates) > 0 {
			if err := s.store.InTx(ctx, func(ctx context.Context) error {
				return s.attachMandates(ctx, record, politicianID)
			}); err != nil {
				return "", jobs.Fatal(err)
			}
		}
		pool.Remove(politicianID)
		return OutcomeMatched, nil
	}

	held, err := s.store.FindPoliticianLink(ctx, record.Source, politicianID)
	if err != nil {
		return "", jobs.Fatal(fmt.Errorf("failed to look up %s link of %s: %w", record.Source, politicianID, err))
	}
	if held != nil && held.ExternalID != record.ExternalID {
		log.WithField("held_external_id", held.ExternalID).Warn("Politician already holds a different id for this source")
		return OutcomeConflict, nil
	}

	entry := confidence.Lookup(record.Source)
	if match.Basis == models.MatchBasisPivot {
		entry = confidence.ForPivot(record.Source)
	}
	link := s.newLink(record, politicianID, entry)

	if s.config.DryRun {
		log.Info("Dry run, link not written")
		pool.Remove(politicianID)
		return OutcomeLinked, nil
	}

	var created bool
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.store.UpsertLink(ctx, link); err != nil {
			return fmt.Errorf("failed to write link %s/%s: %w", link.Source, link.ExternalID, err)
		}
		return s.attachMandates(ctx, record, politicianID)
	})
	if err != nil {
		return "", jobs.Fatal(err)
	}

	pool.Remove(politicianID)
	if !created {
		return OutcomeAlreadyLinked, nil
	}

	metrics.LinksCreatedTotal.WithLabelValues(string(link.Source), string(link.MatchedBy)).Inc()
	log.WithFields(map[string]any{"confidence": link.Confidence, "matched_by": link.MatchedBy}).Info("Linked record")
	if err := s.emitter.EmitLinkCreated(ctx, link); err != nil {
		log.WithError(err).Warn("Failed to emit link event")
	}
	return OutcomeLinked, nil
}

// create adds a politician for a record nobody matched. The new politician joins the pool so
// later records of the same person in this batch match it instead of creating another.
func (s *Syncer) create(ctx context.Context, log ectologger.Logger, record models.CandidateRecord, pool *matching.Pool) (jobs.Outcome, error) {
	now := s.now()
	politician := &models.Politician{
		ID:        uuid.New().String(),
		FirstName: record.FirstName,
		LastName:  record.LastName,
		FullName:  record.Name,
		BirthDate: record.BirthDate,
		DeathDate: record.DeathDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log = log.WithField("politician_id", politician.ID)

	if s.config.DryRun {
		log.Info("Dry run, politician not created")
		pool.Add(*politician)
		return OutcomeCreated, nil
	}

	var link *models.ExternalLink
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreatePolitician(ctx, politician); err != nil {
			return fmt.Errorf("failed to create politician %q: %w", record.Name, err)
		}
		if record.ExternalID != "" {
			link = s.newLink(record, politician.ID, confidence.Lookup(record.Source))
			if _, err := s.store.UpsertLink(ctx, link); err != nil {
				return fmt.Errorf("failed to write link %s/%s: %w", link.Source, link.ExternalID, err)
			}
		}
		return s.attachMandates(ctx, record, politician.ID)
	})
	if err != nil {
		return "", jobs.Fatal(err)
	}

	pool.Add(*politician)
	log.Info("Created politician")
	if err := s.emitter.EmitPoliticianCreated(ctx, politician, record.Source); err != nil {
		log.WithError(err).Warn("Failed to emit politician event")
	}
	if link != nil {
		metrics.LinksCreatedTotal.WithLabelValues(string(link.Source), string(link.MatchedBy)).Inc()
		if err := s.emitter.EmitLinkCreated(ctx, link); err != nil {
			log.WithError(err).Warn("Failed to emit link event")
		}
	}
	return OutcomeCreated, nil
}

func (s *Syncer) newLink(record models.CandidateRecord, politicianID string, entry confidence.Entry) *models.ExternalLink {
	now := s.now()
	owner := politicianID
	return &models.ExternalLink{
		ID:           uuid.New().String(),
		Source:       record.Source,
		ExternalID:   record.ExternalID,
		PoliticianID: &owner,
		Confidence:   entry.Confidence,
		MatchedBy:    entry.MatchedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Syncer) attachMandates(ctx context.Context, record models.CandidateRecord, politicianID string) error {
	now := s.now()
	for i := range record.Mandates {
		m := record.Mandates[i]
		m.PoliticianID = politicianID
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.Source == "" {
			m.Source = record.Source
		}
		m.StartDate = models.Day(m.StartDate)
		m.IsCurrent = m.EndDate == nil
		m.CreatedAt, m.UpdatedAt = now, now
		if err := s.store.UpsertMandate(ctx, &m); err != nil {
			return fmt.Errorf("failed to write %s mandate for %s: %w", m.Type, politicianID, err)
		}
		s.mandatesWritten++
	}
	return nil
}
