// Package duplicates finds affairs of the same politician that likely describe the same
// real event.
package duplicates

import (
	"math"
	"sort"
	"time"

	"github.com/Ramsey-B/iris/pkg/matching"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/normalizers"
)

const (
	TitleWeight    = 0.6
	DateWeight     = 0.25
	CategoryWeight = 0.15

	DefaultDateToleranceDays   = 30
	DefaultMinScore            = 0.5
	DefaultHighTitleSimilarity = 0.9
)

// Config tunes the detector
type Config struct {
	DateToleranceDays   int     // event dates this close agree (default: 30)
	MinScore            float64 // pairs scoring below are discarded (default: 0.5)
	HighTitleSimilarity float64 // title similarity needed for HIGH (default: 0.9)
	// TitleNormalizers names the registered normalizers applied in order to build title keys (default: ntitle)
	TitleNormalizers []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DateToleranceDays:   DefaultDateToleranceDays,
		MinScore:            DefaultMinScore,
		HighTitleSimilarity: DefaultHighTitleSimilarity,
		TitleNormalizers:    []string{"ntitle"},
	}
}

// Detector scores pairs of affairs. It has no side effects.
type Detector struct {
	config Config
	scorer *matching.Scorer
}

// NewDetector creates a detector, filling unset config values with defaults
func NewDetector(config Config) *Detector {
	def := DefaultConfig()
	if config.DateToleranceDays <= 0 {
		config.DateToleranceDays = def.DateToleranceDays
	}
	if config.MinScore <= 0 {
		config.MinScore = def.MinScore
	}
	if config.HighTitleSimilarity <= 0 {
		config.HighTitleSimilarity = def.HighTitleSimilarity
	}
	if len(config.TitleNormalizers) == 0 {
		config.TitleNormalizers = def.TitleNormalizers
	}
	return &Detector{
		config: config,
		scorer: matching.NewScorer(),
	}
}

// Detect returns every pair above the score floor, most confident first
func (d *Detector) Detect(affairs []models.Affair) []models.DuplicatePair {
	return d.detect(affairs, func(_, _ *models.Affair) bool { return true })
}

// DetectWindow compares only pairs where at least one affair was created at or after
// since, so a recent import is checked against the full history.
func (d *Detector) DetectWindow(affairs []models.Affair, since time.Time) []models.DuplicatePair {
	recent := func(a *models.Affair) bool { return !a.CreatedAt.Before(since) }
	return d.detect(affairs, func(a, b *models.Affair) bool { return recent(a) || recent(b) })
}

func (d *Detector) detect(affairs []models.Affair, include func(a, b *models.Affair) bool) []models.DuplicatePair {
	byPolitician := make(map[string][]*models.Affair)
	for i := range affairs {
		a := &affairs[i]
		if a.PoliticianID == "" {
			continue
		}
		byPolitician[a.PoliticianID] = append(byPolitician[a.PoliticianID], a)
	}

	var pairs []models.DuplicatePair
	for _, group := range byPolitician {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if !include(group[i], group[j]) {
					continue
				}
				if pair, ok := d.Compare(group[i], group[j]); ok {
					pairs = append(pairs, pair)
				}
			}
		}
	}

	SortPairs(pairs)
	return pairs
}

// Compare scores one pair. It returns false when the affairs belong to different
// politicians, are the same record, or score below the floor.
func (d *Detector) Compare(a, b *models.Affair) (models.DuplicatePair, bool) {
	if a.ID == b.ID || a.PoliticianID != b.PoliticianID {
		return models.DuplicatePair{}, false
	}
	if b.ID < a.ID {
		a, b = b, a
	}

	titleA := normalizers.ApplyChain(a.Title, d.config.TitleNormalizers...)
	titleB := normalizers.ApplyChain(b.Title, d.config.TitleNormalizers...)
	exactTitle := titleA != "" && titleA == titleB

	titleSim := 0.0
	switch {
	case exactTitle:
		titleSim = 1.0
	case titleA != "" && titleB != "":
		titleSim = d.scorer.JaroWinkler(titleA, titleB)
	}

	dateA, dateB := a.EventDate(), b.EventDate()
	dateScore := d.scorer.DateProximity(dateA, dateB, d.config.DateToleranceDays)
	datesAgree := d.scorer.WithinDays(dateA, dateB, d.config.DateToleranceDays)

	sameCategory := a.Category != "" && a.Category == b.Category
	categoryScore := 0.0
	if sameCategory {
		categoryScore = 1.0
	}

	contributions := []struct {
		signal models.DuplicateSignal
		value  float64
	}{
		{models.DuplicateSignalTitle, TitleWeight * titleSim},
		{models.DuplicateSignalDate, DateWeight * dateScore},
		{models.DuplicateSignalCategory, CategoryWeight * categoryScore},
	}

	score := 0.0
	top := contributions[0]
	for _, c := range contributions {
		score += c.value
		if c.value > top.value {
			top = c
		}
	}

	if score < d.config.MinScore {
		return models.DuplicatePair{}, false
	}

	confidence := models.DuplicateConfidencePossible
	switch {
	case exactTitle && datesAgree:
		confidence = models.DuplicateConfidenceCertain
	case titleSim >= d.config.HighTitleSimilarity && (datesAgree || sameCategory):
		confidence = models.DuplicateConfidenceHigh
	}

	pair := models.DuplicatePair{
		LeftID:          a.ID,
		RightID:         b.ID,
		PoliticianID:    a.PoliticianID,
		Score:           round(score),
		Confidence:      confidence,
		MatchedBy:       top.signal,
		TitleSimilarity: round(titleSim),
	}
	if days, ok := d.scorer.DaysApart(dateA, dateB); ok {
		pair.DaysApart = &days
	}
	return pair, true
}

// SortPairs orders pairs by bucket, then score, then ids
func SortPairs(pairs []models.DuplicatePair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.LeftID != b.LeftID {
			return a.LeftID < b.LeftID
		}
		return a.RightID < b.RightID
	})
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
