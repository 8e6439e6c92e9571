package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Record is one provider payload decoded into its typed variant
type Record interface {
	// Key identifies the payload in logs and error samples
	Key() string
	Candidate() models.CandidateRecord
}

// AssembleeActeur is one "acteur" of the Assemblée nationale open data export
type AssembleeActeur struct {
	UID       string `validate:"required,startswith=PA"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	BirthDate *time.Time
	DeathDate *time.Time
	Mandats   []AssembleeMandat `validate:"dive"`
}

// AssembleeMandat is one office listed under an acteur
type AssembleeMandat struct {
	Organ      string
	Quality    string
	Start      *time.Time `validate:"required"`
	End        *time.Time
	Department string
	District   string
}

func (a AssembleeActeur) Key() string { return a.UID }

func (a AssembleeActeur) Candidate() models.CandidateRecord {
	record := models.CandidateRecord{
		Name:       a.FirstName + " " + a.LastName,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		BirthDate:  a.BirthDate,
		DeathDate:  a.DeathDate,
		Source:     models.SourceAssembleeNationale,
		ExternalID: a.UID,
	}
	for _, m := range a.Mandats {
		mandateType, ok := assembleeMandateType(m.Organ, m.Quality)
		if !ok {
			continue
		}
		mandate := models.Mandate{
			Type:      mandateType,
			Title:     m.Quality,
			StartDate: *m.Start,
			EndDate:   m.End,
		}
		if mandateType == models.MandateDepute {
			mandate.Title = "Député"
			if m.Department != "" {
				mandate.Constituency = m.Department
				if m.District != "" {
					mandate.Constituency += " (" + m.District + ")"
				}
			}
		}
		record.Mandates = append(record.Mandates, mandate)
	}
	return record
}

func assembleeMandateType(organ, quality string) (models.MandateType, bool) {
	switch organ {
	case "ASSEMBLEE":
		return models.MandateDepute, true
	case "GOUVERNEMENT":
		q := strings.ToLower(quality)
		switch {
		case strings.Contains(q, "premier ministre"):
			return models.MandatePremierMinistre, true
		case strings.Contains(q, "secrétaire d'état"), strings.Contains(q, "secrétaire d’état"):
			return models.MandateSecretaireEtat, true
		case strings.Contains(q, "ministre"):
			return models.MandateMinistre, true
		}
	}
	return "", false
}

// SenatSenateur is one senator from the Sénat open data list
type SenatSenateur struct {
	Matricule    string `validate:"required"`
	FirstName    string `validate:"required"`
	LastName     string `validate:"required"`
	BirthDate    *time.Time
	DeathDate    *time.Time
	Constituency string
	Series       *int `validate:"omitempty,oneof=1 2"`
	MandateStart *time.Time
	MandateEnd   *time.Time
}

func (s SenatSenateur) Key() string { return s.Matricule }

func (s SenatSenateur) Candidate() models.CandidateRecord {
	record := models.CandidateRecord{
		Name:       s.FirstName + " " + s.LastName,
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		BirthDate:  s.BirthDate,
		DeathDate:  s.DeathDate,
		Source:     models.SourceSenat,
		ExternalID: s.Matricule,
	}
	if s.MandateStart != nil {
		record.Mandates = []models.Mandate{{
			Type:          models.MandateSenateur,
			Title:         "Sénateur",
			Constituency:  s.Constituency,
			RenewalSeries: s.Series,
			StartDate:     *s.MandateStart,
			EndDate:       s.MandateEnd,
		}}
	}
	return record
}

// EuroparlMember is one MEP from the European Parliament directory
type EuroparlMember struct {
	ID           string `validate:"required,numeric"`
	FullName     string `validate:"required"`
	Country      string
	MandateStart *time.Time
	MandateEnd   *time.Time
}

func (m EuroparlMember) Key() string { return m.ID }

// French reports whether the member sits for France. Members without a country are kept.
func (m EuroparlMember) French() bool {
	switch strings.ToLower(strings.TrimSpace(m.Country)) {
	case "", "france", "fr":
		return true
	}
	return false
}

func (m EuroparlMember) Candidate() models.CandidateRecord {
	record := models.CandidateRecord{
		Name:       m.FullName,
		Source:     models.SourceParlementEuropeen,
		ExternalID: m.ID,
	}
	if m.MandateStart != nil {
		record.Mandates = []models.Mandate{{
			Type:      models.MandateDeputeEuropeen,
			Title:     "Député européen",
			StartDate: *m.MandateStart,
			EndDate:   m.MandateEnd,
		}}
	}
	return record
}

// WikidataBinding is one row of a SPARQL result set describing a person
type WikidataBinding struct {
	QID         string `validate:"required,startswith=Q"`
	Label       string `validate:"required"`
	BirthDate   *time.Time
	DeathDate   *time.Time
	AssembleeID string
	SenatID     string
	EuroparlID  string
}

func (w WikidataBinding) Key() string { return w.QID }

func (w WikidataBinding) Candidate() models.CandidateRecord {
	record := models.CandidateRecord{
		Name:       w.Label,
		BirthDate:  w.BirthDate,
		DeathDate:  w.DeathDate,
		Source:     models.SourceWikidata,
		ExternalID: w.QID,
	}
	pivots := map[models.SourceTag]string{
		models.SourceAssembleeNationale: w.AssembleeID,
		models.SourceSenat:              w.SenatID,
		models.SourceParlementEuropeen:  w.EuroparlID,
	}
	for source, id := range pivots {
		if id == "" {
			continue
		}
		if record.PivotIDs == nil {
			record.PivotIDs = make(map[models.SourceTag]string)
		}
		record.PivotIDs[source] = id
	}
	return record
}

// qid extracts the Q-identifier from an entity URI such as http://www.wikidata.org/entity/Q42
func qid(uri string) string {
	uri = strings.TrimSpace(uri)
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// ManualEntry is a hand-curated record
type ManualEntry struct {
	Name       string `validate:"required"`
	FirstName  string
	LastName   string
	BirthDate  *time.Time
	DeathDate  *time.Time
	ExternalID string `validate:"omitempty,max=255"`
	WikidataID string `validate:"omitempty,startswith=Q"`
}

func (m ManualEntry) Key() string {
	if m.ExternalID != "" {
		return m.ExternalID
	}
	return m.Name
}

func (m ManualEntry) Candidate() models.CandidateRecord {
	record := models.CandidateRecord{
		Name:       m.Name,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		BirthDate:  m.BirthDate,
		DeathDate:  m.DeathDate,
		Source:     models.SourceManual,
		ExternalID: m.ExternalID,
	}
	if m.WikidataID != "" {
		record.PivotIDs = map[models.SourceTag]string{models.SourceWikidata: m.WikidataID}
	}
	return record
}

// itemKey labels an undecodable item by its position
func itemKey(index int) string {
	return fmt.Sprintf("#%d", index)
}
