package models

import "time"

// MandateType is the closed enumeration of office categories
type MandateType string

const (
	MandatePresidentRepublique           MandateType = "PRESIDENT_REPUBLIQUE"
	MandatePremierMinistre               MandateType = "PREMIER_MINISTRE"
	MandateMinistre                      MandateType = "MINISTRE"
	MandateSecretaireEtat                MandateType = "SECRETAIRE_ETAT"
	MandateDepute                        MandateType = "DEPUTE"
	MandateSenateur                      MandateType = "SENATEUR"
	MandateDeputeEuropeen                MandateType = "DEPUTE_EUROPEEN"
	MandateMaire                         MandateType = "MAIRE"
	MandatePresidentConseilRegional      MandateType = "PRESIDENT_CONSEIL_REGIONAL"
	MandatePresidentConseilDepartemental MandateType = "PRESIDENT_CONSEIL_DEPARTEMENTAL"
	MandateConseillerMunicipal           MandateType = "CONSEILLER_MUNICIPAL"
	MandateConseillerRegional            MandateType = "CONSEILLER_REGIONAL"
	MandateConseillerDepartemental       MandateType = "CONSEILLER_DEPARTEMENTAL"
)

// ReviewReason explains why a mandate was flagged for manual review
type ReviewReason string

const (
	ReviewReasonPreFifthRepublic ReviewReason = "PRE_FIFTH_REPUBLIC"
	ReviewReasonStale            ReviewReason = "STALE"
)

// Mandate is one office held by one politician over a period
type Mandate struct {
	ID           string      `json:"id" db:"id"`
	PoliticianID string      `json:"politician_id" db:"politician_id"`
	Type         MandateType `json:"type" db:"type"`
	Title        string      `json:"title" db:"title"`
	Constituency string      `json:"constituency,omitempty" db:"constituency"`
	// RenewalSeries is the senate renewal group (1 or 2) when known
	RenewalSeries *int         `json:"renewal_series,omitempty" db:"renewal_series"`
	StartDate     time.Time    `json:"start_date" db:"start_date"`
	EndDate       *time.Time   `json:"end_date,omitempty" db:"end_date"`
	IsCurrent     bool         `json:"is_current" db:"is_current"`
	NeedsReview   bool         `json:"needs_review" db:"needs_review"`
	ReviewReason  ReviewReason `json:"review_reason,omitempty" db:"review_reason"`
	Source        SourceTag    `json:"source,omitempty" db:"source"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the mandate is in the OPEN state
func (m *Mandate) IsOpen() bool {
	return m.IsCurrent && m.EndDate == nil
}

// Close moves the mandate to CLOSED with the given end date
func (m *Mandate) Close(end time.Time) {
	e := Day(end)
	m.EndDate = &e
	m.IsCurrent = false
}

// MandateClosure is one planned OPEN -> CLOSED transition
type MandateClosure struct {
	MandateID    string       `json:"mandate_id"`
	PoliticianID string       `json:"politician_id"`
	Type         MandateType  `json:"type"`
	EndDate      time.Time    `json:"end_date"`
	SupersededBy string       `json:"superseded_by,omitempty"`
	NeedsReview  bool         `json:"needs_review"`
	ReviewReason ReviewReason `json:"review_reason,omitempty"`
}
