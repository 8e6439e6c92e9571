// Package mandates keeps open mandates consistent with the exclusivity rules of each office
package mandates

import (
	"time"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Scope is the exclusivity rule of an office
type Scope string

const (
	// ScopeSingleton offices have one holder across the whole population
	ScopeSingleton Scope = "SINGLETON"
	// ScopePerSeat offices can be held once at a time per politician
	ScopePerSeat Scope = "PER_SEAT"
	// ScopeShared offices can be held several times at once
	ScopeShared Scope = "SHARED"
)

// Office describes one mandate type
type Office struct {
	Type  models.MandateType
	Scope Scope
	// Term is the longest regular term, zero when the office has none
	Term time.Duration
	// Renewal is true for bodies renewed by halves on a fixed calendar
	Renewal bool
}

const year = 365 * 24 * time.Hour

var catalogue = map[models.MandateType]Office{
	models.MandatePresidentRepublique:           {Scope: ScopeSingleton, Term: 7 * year},
	models.MandatePremierMinistre:               {Scope: ScopeSingleton},
	models.MandateDepute:                        {Scope: ScopePerSeat, Term: 5 * year},
	models.MandateSenateur:                      {Scope: ScopePerSeat, Term: 9 * year, Renewal: true},
	models.MandateDeputeEuropeen:                {Scope: ScopePerSeat, Term: 5 * year},
	models.MandateMaire:                         {Scope: ScopePerSeat, Term: 6 * year},
	models.MandatePresidentConseilRegional:      {Scope: ScopePerSeat, Term: 6 * year},
	models.MandatePresidentConseilDepartemental: {Scope: ScopePerSeat, Term: 6 * year},
	models.MandateMinistre:                      {Scope: ScopeShared},
	models.MandateSecretaireEtat:                {Scope: ScopeShared},
	models.MandateConseillerMunicipal:           {Scope: ScopeShared, Term: 6 * year},
	models.MandateConseillerRegional:            {Scope: ScopeShared, Term: 6 * year},
	models.MandateConseillerDepartemental:       {Scope: ScopeShared, Term: 6 * year},
}

// Lookup returns the office for t. Unknown types are shared with no term.
func Lookup(t models.MandateType) Office {
	office, ok := catalogue[t]
	if !ok {
		return Office{Type: t, Scope: ScopeShared}
	}
	office.Type = t
	return office
}

// TermEnd returns start plus the office's term in whole years
func (o Office) TermEnd(start time.Time) (time.Time, bool) {
	if o.Term == 0 {
		return time.Time{}, false
	}
	return models.Day(start).AddDate(int(o.Term/year), 0, 0), true
}
