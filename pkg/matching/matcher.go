package matching

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/normalizers"
)

// DefaultDateToleranceDays is the inclusive birth/death date window used to break homonym ties
const DefaultDateToleranceDays = 5

// Config tunes the matcher
type Config struct {
	DateToleranceDays int `json:"date_tolerance_days"`
	// StrictSingleDates rejects a lone name match whose known birth date disagrees with the candidate
	StrictSingleDates bool `json:"strict_single_dates"`
}

// DefaultConfig returns the matcher defaults
func DefaultConfig() Config {
	return Config{DateToleranceDays: DefaultDateToleranceDays}
}

// Matcher resolves candidate records against a pool of existing politicians.
// It performs no I/O.
type Matcher struct {
	config Config
	scorer *Scorer
}

// NewMatcher creates a new Matcher
func NewMatcher(config Config) *Matcher {
	if config.DateToleranceDays < 0 {
		config.DateToleranceDays = DefaultDateToleranceDays
	}
	return &Matcher{
		config: config,
		scorer: NewScorer(),
	}
}

// Match resolves one candidate against the pool.
//
// Pivot identifiers are tried first. Otherwise the normalized name and its swapped forms
// are looked up; a single hit is a match, several hits are narrowed by birth date and then
// death date. Anything that does not end with exactly one survivor is AMBIGUOUS.
func (m *Matcher) Match(candidate models.CandidateRecord, pool *Pool) models.MatchCandidate {
	if result, ok := m.matchPivot(candidate, pool); ok {
		return result
	}

	ids := pool.lookup(candidateKeys(candidate))

	switch len(ids) {
	case 0:
		return models.MatchCandidate{
			Outcome: models.MatchOutcomeNoMatch,
			Basis:   models.MatchBasisNoNameMatch,
		}
	case 1:
		return m.matchSingle(candidate, pool, ids[0])
	}

	return m.breakTie(candidate, pool, ids)
}

func (m *Matcher) matchPivot(candidate models.CandidateRecord, pool *Pool) (models.MatchCandidate, bool) {
	if len(candidate.PivotIDs) == 0 {
		return models.MatchCandidate{}, false
	}

	sources := make([]string, 0, len(candidate.PivotIDs))
	for source := range candidate.PivotIDs {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)

	owners := make(map[string]bool)
	var ids []string
	for _, source := range sources {
		id, ok := pool.pivot(models.SourceTag(source), candidate.PivotIDs[models.SourceTag(source)])
		if !ok || owners[id] {
			continue
		}
		owners[id] = true
		ids = append(ids, id)
	}

	switch len(ids) {
	case 0:
		return models.MatchCandidate{}, false
	case 1:
		return models.MatchCandidate{
			Outcome:      models.MatchOutcomeMatched,
			PoliticianID: ids[0],
			Basis:        models.MatchBasisPivot,
			NameMatches:  ids,
		}, true
	}

	// pivots disagree on who the candidate is
	sort.Strings(ids)
	return models.MatchCandidate{
		Outcome:     models.MatchOutcomeAmbiguous,
		Basis:       models.MatchBasisUnresolvedTie,
		NameMatches: ids,
		Ambiguous:   true,
	}, true
}

func (m *Matcher) matchSingle(candidate models.CandidateRecord, pool *Pool, id string) models.MatchCandidate {
	pol, _ := pool.Get(id)
	result := models.MatchCandidate{
		Outcome:      models.MatchOutcomeMatched,
		PoliticianID: id,
		Basis:        models.MatchBasisExactName,
		NameMatches:  []string{id},
	}

	days, known := m.scorer.DaysApart(candidate.BirthDate, pol.BirthDate)
	switch {
	case !known:
		// a missing date on either side does not disqualify a lone match
	case days <= m.config.DateToleranceDays:
		result.Basis = models.MatchBasisNameBirthDate
	case m.config.StrictSingleDates:
		return models.MatchCandidate{
			Outcome:     models.MatchOutcomeNoMatch,
			Basis:       models.MatchBasisDateMismatch,
			NameMatches: []string{id},
		}
	}
	return result
}

func (m *Matcher) breakTie(candidate models.CandidateRecord, pool *Pool, ids []string) models.MatchCandidate {
	tolerance := m.config.DateToleranceDays

	byBirth := m.filter(pool, ids, func(pol *models.Politician) bool {
		return m.scorer.WithinDays(candidate.BirthDate, pol.BirthDate, tolerance)
	})
	byDeath := func(from []string) []string {
		return m.filter(pool, from, func(pol *models.Politician) bool {
			return m.scorer.WithinDays(candidate.DeathDate, pol.DeathDate, tolerance)
		})
	}

	if len(byBirth) == 1 {
		return matched(byBirth[0], models.MatchBasisNameBirthDate, ids)
	}

	if candidate.DeathDate != nil {
		from := byBirth
		if len(byBirth) == 0 {
			// death date stands in for a birth date only where no birth date comparison exists
			from = m.filter(pool, ids, func(pol *models.Politician) bool {
				_, known := m.scorer.DaysApart(candidate.BirthDate, pol.BirthDate)
				return !known
			})
		}
		if survivors := byDeath(from); len(survivors) == 1 {
			return matched(survivors[0], models.MatchBasisNameDeathDate, ids)
		}
	}

	return models.MatchCandidate{
		Outcome:     models.MatchOutcomeAmbiguous,
		Basis:       models.MatchBasisUnresolvedTie,
		NameMatches: ids,
		Ambiguous:   true,
	}
}

func (m *Matcher) filter(pool *Pool, ids []string, keep func(*models.Politician) bool) []string {
	var out []string
	for _, id := range ids {
		pol, ok := pool.Get(id)
		if ok && keep(pol) {
			out = append(out, id)
		}
	}
	return out
}

func matched(id string, basis models.MatchBasis, nameMatches []string) models.MatchCandidate {
	return models.MatchCandidate{
		Outcome:      models.MatchOutcomeMatched,
		PoliticianID: id,
		Basis:        basis,
		NameMatches:  nameMatches,
	}
}

// candidateKeys returns the normalized name, the "first last" form and every swapped form
func candidateKeys(candidate models.CandidateRecord) []string {
	keys := []string{normalizers.NormalizeName(candidate.Name)}
	if candidate.FirstName != "" && candidate.LastName != "" {
		keys = append(keys, normalizers.NormalizeName(strings.TrimSpace(candidate.FirstName+" "+candidate.LastName)))
	}
	keys = append(keys, normalizers.SwappedForms(candidate.Name)...)

	out := keys[:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
