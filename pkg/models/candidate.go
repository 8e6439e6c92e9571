package models

import "time"

// CandidateRecord is one provider record normalized for matching.
// Provider decoders build it; the matching core never sees provider shapes.
type CandidateRecord struct {
	Name       string     `json:"name" validate:"required"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	DeathDate  *time.Time `json:"death_date,omitempty"`
	Source     SourceTag  `json:"source" validate:"required"`
	ExternalID string     `json:"external_id,omitempty" validate:"omitempty,max=255"`

	// PivotIDs carries identifiers the provider publishes for other sources,
	// e.g. the Wikidata Q-id the Assemblée lists for a deputy.
	PivotIDs map[SourceTag]string `json:"pivot_ids,omitempty"`

	// Mandates the provider lists for this person, attached once the record is linked
	Mandates []Mandate `json:"mandates,omitempty"`
}

// Key identifies the record inside a batch for checkpointing
func (c *CandidateRecord) Key() string {
	if c.ExternalID != "" {
		return string(c.Source) + ":" + c.ExternalID
	}
	key := string(c.Source) + ":" + c.Name
	if c.BirthDate != nil {
		key += ":" + c.BirthDate.Format("2006-01-02")
	}
	return key
}

// MatchOutcome is the terminal decision for a candidate record
type MatchOutcome string

const (
	MatchOutcomeMatched   MatchOutcome = "MATCHED"
	MatchOutcomeNoMatch   MatchOutcome = "NO_MATCH"
	MatchOutcomeAmbiguous MatchOutcome = "AMBIGUOUS"
)

// MatchBasis records which comparison produced a match
type MatchBasis string

const (
	MatchBasisExactName     MatchBasis = "EXACT_NAME"
	MatchBasisNameBirthDate MatchBasis = "NAME_AND_BIRTH_DATE"
	MatchBasisNameDeathDate MatchBasis = "NAME_AND_DEATH_DATE"
	MatchBasisPivot         MatchBasis = "PIVOT"
	MatchBasisDateMismatch  MatchBasis = "DATE_MISMATCH"
	MatchBasisUnresolvedTie MatchBasis = "UNRESOLVED_TIE"
	MatchBasisNoNameMatch   MatchBasis = "NO_NAME_MATCH"
)

// MatchCandidate is the ephemeral result of resolving one candidate record
type MatchCandidate struct {
	Outcome      MatchOutcome `json:"outcome"`
	PoliticianID string       `json:"politician_id,omitempty"`
	Basis        MatchBasis   `json:"basis"`
	// NameMatches lists every politician whose normalized name matched, before tie-break
	NameMatches []string `json:"name_matches,omitempty"`
	Ambiguous   bool     `json:"ambiguous"`
}
