package models

import (
	"fmt"
	"strings"
	"time"
)

// Politician is the canonical record for one office holder
type Politician struct {
	ID        string     `json:"id" db:"id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	FullName  string     `json:"full_name" db:"full_name"`
	BirthDate *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	DeathDate *time.Time `json:"death_date,omitempty" db:"death_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// DisplayName returns FullName, falling back to "First Last"
func (p *Politician) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ExternalLink ties an external identifier from one source to exactly one owner:
// a politician, an affair or a party.
type ExternalLink struct {
	ID           string    `json:"id" db:"id"`
	Source       SourceTag `json:"source" db:"source"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	PoliticianID *string   `json:"politician_id,omitempty" db:"politician_id"`
	AffairID     *string   `json:"affair_id,omitempty" db:"affair_id"`
	PartyID      *string   `json:"party_id,omitempty" db:"party_id"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	MatchedBy    MatchedBy `json:"matched_by" db:"matched_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// OwnerKind names the kind of record owning a link
type OwnerKind string

const (
	OwnerPolitician OwnerKind = "politician"
	OwnerAffair     OwnerKind = "affair"
	OwnerParty      OwnerKind = "party"
)

// Owner returns the kind and id of the record owning the link
func (l *ExternalLink) Owner() (OwnerKind, string) {
	switch {
	case l.PoliticianID != nil:
		return OwnerPolitician, *l.PoliticianID
	case l.AffairID != nil:
		return OwnerAffair, *l.AffairID
	case l.PartyID != nil:
		return OwnerParty, *l.PartyID
	}
	return "", ""
}

// Validate checks the single-owner and confidence range invariants
func (l *ExternalLink) Validate() error {
	owners := 0
	for _, id := range []*string{l.PoliticianID, l.AffairID, l.PartyID} {
		if id != nil && *id != "" {
			owners++
		}
	}
	if owners != 1 {
		return fmt.Errorf("external link %s/%s must have exactly one owner, got %d", l.Source, l.ExternalID, owners)
	}
	if l.Confidence < 0 || l.Confidence > 1 {
		return fmt.Errorf("external link %s/%s confidence %.2f outside [0,1]", l.Source, l.ExternalID, l.Confidence)
	}
	if l.Source == "" || l.ExternalID == "" {
		return fmt.Errorf("external link requires a source and an external id")
	}
	return nil
}
