package duplicates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/models"
)

var created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func affair(id, politician, title string, category models.AffairCategory, facts *time.Time) models.Affair {
	return models.Affair{
		ID:           id,
		PoliticianID: politician,
		Title:        title,
		Category:     category,
		FactsDate:    facts,
		CreatedAt:    created,
	}
}

func TestDetector_Buckets(t *testing.T) {
	d := NewDetector(DefaultConfig())
	base := models.DatePtr(2017, time.January, 25)

	tests := []struct {
		name       string
		a, b       models.Affair
		found      bool
		confidence models.DuplicateConfidence
		score      float64
		matchedBy  models.DuplicateSignal
		daysApart  *int
	}{
		{
			name:       "exact title same day is certain",
			a:          affair("a1", "p1", "Affaire des emplois fictifs", models.AffairCategoryEmploisFictifs, base),
			b:          affair("a2", "p1", "affaire des EMPLOIS fictifs !", models.AffairCategoryEmploisFictifs, models.DatePtr(2017, time.January, 25)),
			found:      true,
			confidence: models.DuplicateConfidenceCertain,
			score:      1.0,
			matchedBy:  models.DuplicateSignalTitle,
		},
		{
			name:       "exact title 40 days apart with same category is high",
			a:          affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
			b:          affair("a2", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, models.DatePtr(2017, time.March, 6)),
			found:      true,
			confidence: models.DuplicateConfidenceHigh,
			score:      0.75,
			matchedBy:  models.DuplicateSignalTitle,
		},
		{
			name:       "exact title 40 days apart different category is possible",
			a:          affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
			b:          affair("a2", "p1", "Affaire Bygmalion", models.AffairCategoryFraudeFiscale, models.DatePtr(2017, time.March, 6)),
			found:      true,
			confidence: models.DuplicateConfidencePossible,
			score:      0.6,
			matchedBy:  models.DuplicateSignalTitle,
		},
		{
			name:       "near title with agreeing dates is high",
			a:          affair("a1", "p1", "Affaire des assistants parlementaires", models.AffairCategoryDetournement, base),
			b:          affair("a2", "p1", "Affaire des assistants parlementaire", models.AffairCategoryAutre, models.DatePtr(2017, time.February, 4)),
			found:      true,
			confidence: models.DuplicateConfidenceHigh,
			matchedBy:  models.DuplicateSignalTitle,
		},
		{
			name:  "unrelated titles are discarded",
			a:     affair("a1", "p1", "Emplois fictifs", models.AffairCategoryEmploisFictifs, nil),
			b:     affair("a2", "p1", "Financement libyen", models.AffairCategoryEmploisFictifs, nil),
			found: false,
		},
		{
			name:  "different politicians are never paired",
			a:     affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
			b:     affair("a2", "p2", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, ok := d.Compare(&tt.a, &tt.b)
			require.Equal(t, tt.found, ok)
			if !tt.found {
				return
			}
			assert.Equal(t, tt.confidence, pair.Confidence)
			assert.Equal(t, tt.matchedBy, pair.MatchedBy)
			if tt.score > 0 {
				assert.InDelta(t, tt.score, pair.Score, 0.0001)
			}
			assert.Equal(t, "a1", pair.LeftID)
			assert.Equal(t, "a2", pair.RightID)
		})
	}
}

func TestDetector_DaysApart(t *testing.T) {
	d := NewDetector(DefaultConfig())
	a := affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, models.DatePtr(2017, time.January, 25))
	b := affair("a2", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, models.DatePtr(2017, time.March, 6))

	pair, ok := d.Compare(&b, &a)
	require.True(t, ok)
	require.NotNil(t, pair.DaysApart)
	assert.Equal(t, 40, *pair.DaysApart)
	assert.Equal(t, "a1", pair.LeftID)

	b.FactsDate = nil
	pair, ok = d.Compare(&a, &b)
	require.True(t, ok)
	assert.Nil(t, pair.DaysApart)
	assert.Equal(t, models.DuplicateConfidenceHigh, pair.Confidence)
}

func TestDetector_EventDateFallsBack(t *testing.T) {
	d := NewDetector(DefaultConfig())
	a := affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, nil)
	a.StartDate = models.DatePtr(2014, time.June, 1)
	b := affair("a2", "p1", "Affaire Bygmalion", models.AffairCategoryAutre, nil)
	b.VerdictDate = models.DatePtr(2014, time.June, 20)

	pair, ok := d.Compare(&a, &b)
	require.True(t, ok)
	assert.Equal(t, models.DuplicateConfidenceCertain, pair.Confidence)
}

func TestDetector_DetectOrdersMostConfidentFirst(t *testing.T) {
	d := NewDetector(DefaultConfig())
	base := models.DatePtr(2017, time.January, 25)

	affairs := []models.Affair{
		affair("c", "p1", "Affaire Bygmalion", models.AffairCategoryFraudeFiscale, models.DatePtr(2017, time.March, 6)),
		affair("a", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
		affair("b", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
		affair("x", "p2", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
	}

	pairs := d.Detect(affairs)
	require.Len(t, pairs, 3)

	assert.Equal(t, models.DuplicateConfidenceCertain, pairs[0].Confidence)
	assert.Equal(t, "a", pairs[0].LeftID)
	assert.Equal(t, "b", pairs[0].RightID)

	// a-c and b-c are POSSIBLE with equal scores, ordered by id
	assert.Equal(t, models.DuplicateConfidencePossible, pairs[1].Confidence)
	assert.Equal(t, "a", pairs[1].LeftID)
	assert.Equal(t, "b", pairs[2].LeftID)
}

func TestDetector_DetectWindow(t *testing.T) {
	d := NewDetector(DefaultConfig())
	base := models.DatePtr(2017, time.January, 25)

	old1 := affair("a", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base)
	old2 := affair("b", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base)
	recent := affair("c", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base)
	recent.CreatedAt = created.AddDate(0, 1, 0)

	pairs := d.DetectWindow([]models.Affair{old1, old2, recent}, created.AddDate(0, 0, 15))
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.Equal(t, "c", p.RightID)
	}
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Config{})
	assert.Equal(t, DefaultConfig(), d.config)
}

func TestDetector_FloorAppliesToEveryBucket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 0.8
	d := NewDetector(cfg)
	base := models.DatePtr(2017, time.January, 25)

	high := []models.Affair{
		affair("a1", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, base),
		affair("a2", "p1", "Affaire Bygmalion", models.AffairCategoryFinancementIllegal, models.DatePtr(2017, time.March, 6)),
	}
	_, found := d.Compare(&high[0], &high[1])
	assert.False(t, found, "a 0.75 HIGH pair sits below a 0.8 floor")

	certain := []models.Affair{
		affair("a3", "p1", "Affaire des emplois fictifs", models.AffairCategoryEmploisFictifs, base),
		affair("a4", "p1", "Affaire des emplois fictifs", models.AffairCategoryEmploisFictifs, base),
	}
	pair, found := d.Compare(&certain[0], &certain[1])
	require.True(t, found)
	assert.Equal(t, models.DuplicateConfidenceCertain, pair.Confidence)
}

func TestDetector_TitleNormalizers(t *testing.T) {
	facts := models.DatePtr(2017, time.January, 25)
	a := affair("a1", "p1", "Affaire des « emplois fictifs »", models.AffairCategoryEmploisFictifs, facts)
	b := affair("a2", "p1", "affaire des emplois fictifs", models.AffairCategoryEmploisFictifs, facts)

	tests := []struct {
		name  string
		chain []string
		exact bool
	}{
		{"default title key ignores punctuation", nil, true},
		{"lowercase only keeps punctuation", []string{"lowercase", "collapse_whitespace"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TitleNormalizers = tt.chain

			pair, ok := NewDetector(cfg).Compare(&a, &b)
			require.True(t, ok)
			assert.Equal(t, tt.exact, pair.TitleSimilarity == 1)
			assert.Equal(t, tt.exact, pair.Confidence == models.DuplicateConfidenceCertain)
		})
	}
}
