package matching

import (
	"time"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Scorer provides the string and date comparisons used by the matcher and the duplicate detector.
// Inputs are expected to be normalized keys, comparisons are byte-wise.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
// Returns a value between 0.0 (no similarity) and 1.0 (exact match)
func (s *Scorer) JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	jaro := s.Jaro(a, b)

	// common prefix boost, capped at 4
	prefixLen := 0
	for i := 0; i < len(a) && i < len(b) && i < 4; i++ {
		if a[i] != b[i] {
			break
		}
		prefixLen++
	}

	return jaro + float64(prefixLen)*0.1*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings
func (s *Scorer) Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// DaysApart returns the calendar days between two optional dates, false when either is missing
func (s *Scorer) DaysApart(a, b *time.Time) (int, bool) {
	if a == nil || b == nil || a.IsZero() || b.IsZero() {
		return 0, false
	}
	return models.DaysApart(*a, *b), true
}

// WithinDays reports whether both dates are known and at most tolerance days apart.
// The boundary is inclusive.
func (s *Scorer) WithinDays(a, b *time.Time, tolerance int) bool {
	days, ok := s.DaysApart(a, b)
	return ok && days <= tolerance
}

// DateProximity calculates a proximity score for two dates
// Returns 1.0 for the same day, decaying linearly to 0.0 at maxDaysDiff
func (s *Scorer) DateProximity(a, b *time.Time, maxDaysDiff int) float64 {
	days, ok := s.DaysApart(a, b)
	if !ok {
		return 0.0
	}
	if days == 0 {
		return 1.0
	}
	if days >= maxDaysDiff {
		return 0.0
	}

	return 1.0 - float64(days)/float64(maxDaysDiff)
}
