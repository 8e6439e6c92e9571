package mandates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/iris/pkg/events"
	"github.com/Ramsey-B/iris/pkg/metrics"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/normalizers"
	"github.com/Ramsey-B/iris/pkg/tracing"
)

// FifthRepublic is the day the current constitution took effect. Mandates starting
// earlier are never current.
var FifthRepublic = models.Date(1958, time.October, 4)

const (
	// PreFifthRepublicOffsetYears is added to the start of a pre-1958 mandate found open
	PreFifthRepublicOffsetYears = 5
	// StaleGraceYears is how long past its term an open mandate may run before it is stale
	StaleGraceYears = 1
)

// reasonSuperseded labels closures caused by a newer mandate
const reasonSuperseded = "SUPERSEDED"

// Plan computes every closure needed to make mandates consistent as of asOf. It is
// pure: mandates are not modified.
//
// Pre-1958 and stale mandates are closed first and leave the exclusivity check. Among
// the rest, singleton offices keep one open mandate across the population and per-seat
// offices one per politician.
func Plan(mandates []models.Mandate, asOf time.Time) []models.MandateClosure {
	asOf = models.Day(asOf)

	var closures []models.MandateClosure
	groups := make(map[string][]*models.Mandate)

	for i := range mandates {
		m := &mandates[i]
		if !m.IsOpen() {
			continue
		}
		office := Lookup(m.Type)

		if closure, ok := reviewClosure(m, office, asOf); ok {
			closures = append(closures, closure)
			continue
		}

		switch office.Scope {
		case ScopeSingleton:
			groups[string(m.Type)] = append(groups[string(m.Type)], m)
		case ScopePerSeat:
			key := string(m.Type) + "|" + m.PoliticianID
			groups[key] = append(groups[key], m)
		}
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		survivor := chooseSurvivor(group)
		for _, loser := range group {
			if loser.ID == survivor.ID {
				continue
			}
			closures = append(closures, supersede(loser, survivor, asOf))
		}
	}

	sort.Slice(closures, func(i, j int) bool {
		return closures[i].MandateID < closures[j].MandateID
	})
	return closures
}

func reviewClosure(m *models.Mandate, office Office, asOf time.Time) (models.MandateClosure, bool) {
	start := models.Day(m.StartDate)

	if start.Before(FifthRepublic) {
		return models.MandateClosure{
			MandateID:    m.ID,
			PoliticianID: m.PoliticianID,
			Type:         m.Type,
			EndDate:      start.AddDate(PreFifthRepublicOffsetYears, 0, 0),
			NeedsReview:  true,
			ReviewReason: models.ReviewReasonPreFifthRepublic,
		}, true
	}

	termEnd, ok := office.TermEnd(start)
	if !ok || !asOf.After(termEnd.AddDate(StaleGraceYears, 0, 0)) {
		return models.MandateClosure{}, false
	}
	return models.MandateClosure{
		MandateID:    m.ID,
		PoliticianID: m.PoliticianID,
		Type:         m.Type,
		EndDate:      termEnd,
		NeedsReview:  true,
		ReviewReason: models.ReviewReasonStale,
	}, true
}

// supersede closes loser at survivor's start, or at the next renewal of its senate series
func supersede(loser, survivor *models.Mandate, asOf time.Time) models.MandateClosure {
	end := models.Day(survivor.StartDate)

	if Lookup(loser.Type).Renewal && loser.RenewalSeries != nil {
		if boundary, ok := NextRenewal(*loser.RenewalSeries, loser.StartDate); ok && !boundary.After(asOf) {
			end = boundary
		}
	}

	// an end date never precedes the mandate's own start
	if start := models.Day(loser.StartDate); end.Before(start) {
		end = start
	}

	return models.MandateClosure{
		MandateID:    loser.ID,
		PoliticianID: loser.PoliticianID,
		Type:         loser.Type,
		EndDate:      end,
		SupersededBy: survivor.ID,
	}
}

// chooseSurvivor prefers a named constituency, then the longer title, then the latest
// start date, then the smaller id.
func chooseSurvivor(group []*models.Mandate) *models.Mandate {
	best := group[0]
	for _, m := range group[1:] {
		if moreSpecific(m, best) {
			best = m
		}
	}
	return best
}

func moreSpecific(a, b *models.Mandate) bool {
	ac, bc := strings.TrimSpace(a.Constituency) != "", strings.TrimSpace(b.Constituency) != ""
	if ac != bc {
		return ac
	}
	at, bt := len(normalizers.NameTokens(a.Title)), len(normalizers.NameTokens(b.Title))
	if at != bt {
		return at > bt
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.After(b.StartDate)
	}
	return a.ID < b.ID
}

// Store is the persistence the reconciler needs
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListOpenMandates(ctx context.Context) ([]models.Mandate, error)
	CloseMandates(ctx context.Context, closures []models.MandateClosure) error
}

// Options controls a reconciliation run
type Options struct {
	DryRun bool
	AsOf   time.Time // defaults to today
}

// Result reports a reconciliation run
type Result struct {
	Examined int                     `json:"examined"`
	Closures []models.MandateClosure `json:"closures"`
	Applied  bool                    `json:"applied"`
}

// Reconciler loads open mandates, plans closures and persists them
type Reconciler struct {
	store   Store
	emitter events.Emitter
	logger  ectologger.Logger
	now     func() time.Time
}

// NewReconciler creates a reconciler. emitter may be nil.
func NewReconciler(store Store, emitter events.Emitter, logger ectologger.Logger) *Reconciler {
	if emitter == nil {
		emitter = events.Noop{}
	}
	return &Reconciler{
		store:   store,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile runs one pass. Loading, planning and closing share one transaction.
func (r *Reconciler) Reconcile(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "mandates.Reconciler.Reconcile")
	defer span.End()

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = r.now()
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"dry_run": opts.DryRun,
		"as_of":   asOf.Format(time.DateOnly),
	})

	result := &Result{}
	err := r.store.InTx(ctx, func(ctx context.Context) error {
		open, err := r.store.ListOpenMandates(ctx)
		if err != nil {
			return fmt.Errorf("failed to list open mandates: %w", err)
		}
		result.Examined = len(open)
		result.Closures = Plan(open, asOf)

		if opts.DryRun || len(result.Closures) == 0 {
			return nil
		}
		if err := r.store.CloseMandates(ctx, result.Closures); err != nil {
			return fmt.Errorf("failed to close mandates: %w", err)
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Mandate reconciliation failed")
		tracing.RecordError(ctx, err)
		return nil, err
	}

	for _, c := range result.Closures {
		log.WithFields(map[string]any{
			"mandate_id":    c.MandateID,
			"politician_id": c.PoliticianID,
			"type":          c.Type,
			"end_date":      c.EndDate.Format(time.DateOnly),
			"superseded_by": c.SupersededBy,
			"review_reason": c.ReviewReason,
		}).Debug("Mandate closure")
	}

	log.WithFields(map[string]any{
		"examined": result.Examined,
		"closures": len(result.Closures),
	}).Info("Mandate reconciliation finished")

	if !result.Applied {
		return result, nil
	}

	for _, c := range result.Closures {
		metrics.MandatesClosedTotal.WithLabelValues(string(c.Type), closureReason(c)).Inc()
	}
	if err := r.emitter.EmitMandatesClosed(ctx, result.Closures); err != nil {
		log.WithError(err).Warn("Failed to emit mandate events")
	}

	return result, nil
}

func closureReason(c models.MandateClosure) string {
	if c.ReviewReason != "" {
		return string(c.ReviewReason)
	}
	return reasonSuperseded
}
