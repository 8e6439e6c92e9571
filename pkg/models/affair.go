package models

import "time"

// AffairCategory is the closed set of judicial affair categories
type AffairCategory string

const (
	AffairCategoryCorruption         AffairCategory = "CORRUPTION"
	AffairCategoryFraudeFiscale      AffairCategory = "FRAUDE_FISCALE"
	AffairCategoryDetournement       AffairCategory = "DETOURNEMENT_FONDS_PUBLICS"
	AffairCategoryAbusBiensSociaux   AffairCategory = "ABUS_DE_BIENS_SOCIAUX"
	AffairCategoryEmploisFictifs     AffairCategory = "EMPLOIS_FICTIFS"
	AffairCategoryFinancementIllegal AffairCategory = "FINANCEMENT_ILLEGAL"
	AffairCategoryFavoritisme        AffairCategory = "FAVORITISME"
	AffairCategoryHarcelement        AffairCategory = "HARCELEMENT"
	AffairCategoryViolence           AffairCategory = "VIOLENCE"
	AffairCategoryDiffamation        AffairCategory = "DIFFAMATION"
	AffairCategoryAutre              AffairCategory = "AUTRE"
)

// AffairStatus tracks the procedural stage of an affair
type AffairStatus string

const (
	AffairStatusEnquete      AffairStatus = "ENQUETE"
	AffairStatusMiseEnExamen AffairStatus = "MISE_EN_EXAMEN"
	AffairStatusProces       AffairStatus = "PROCES"
	AffairStatusCondamnation AffairStatus = "CONDAMNATION"
	AffairStatusRelaxe       AffairStatus = "RELAXE"
	AffairStatusClasse       AffairStatus = "CLASSEMENT_SANS_SUITE"
)

// Affair is a judicial affair attached to one politician
type Affair struct {
	ID           string         `json:"id" db:"id"`
	PoliticianID string         `json:"politician_id" db:"politician_id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description,omitempty" db:"description"`
	Category     AffairCategory `json:"category" db:"category"`
	Status       AffairStatus   `json:"status" db:"status"`
	FactsDate    *time.Time     `json:"facts_date,omitempty" db:"facts_date"`
	StartDate    *time.Time     `json:"start_date,omitempty" db:"start_date"`
	VerdictDate  *time.Time     `json:"verdict_date,omitempty" db:"verdict_date"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// EventDate returns the date that defines the affair: facts first, then the opening of
// proceedings, then the verdict.
func (a *Affair) EventDate() *time.Time {
	switch {
	case a.FactsDate != nil:
		return a.FactsDate
	case a.StartDate != nil:
		return a.StartDate
	default:
		return a.VerdictDate
	}
}

// AffairSource is a citation backing an affair
type AffairSource struct {
	ID          string     `json:"id" db:"id"`
	AffairID    string     `json:"affair_id" db:"affair_id"`
	URL         string     `json:"url" db:"url"`
	Title       string     `json:"title" db:"title"`
	Publisher   string     `json:"publisher" db:"publisher"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// AffairRecord bundles an affair with its children, the unit the merge engine works on
type AffairRecord struct {
	Affair  Affair         `json:"affair"`
	Sources []AffairSource `json:"sources"`
	Links   []ExternalLink `json:"links"`
}
