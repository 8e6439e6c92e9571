// Package confidence assigns the confidence and match method recorded on a new external link
package confidence

import (
	"sort"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Entry is the value attached to links created from one source
type Entry struct {
	Source     models.SourceTag `json:"source"`
	Confidence float64          `json:"confidence"`
	MatchedBy  models.MatchedBy `json:"matched_by"`
}

// Default applies to sources the table does not know
var Default = Entry{Confidence: 0.5, MatchedBy: models.MatchedByNameOnly}

var table = map[models.SourceTag]Entry{
	models.SourceAssembleeNationale: {Confidence: 1.0, MatchedBy: models.MatchedByExternalID},
	models.SourceSenat:              {Confidence: 1.0, MatchedBy: models.MatchedByExternalID},
	models.SourceParlementEuropeen:  {Confidence: 1.0, MatchedBy: models.MatchedByExternalID},
	models.SourceRNE:                {Confidence: 1.0, MatchedBy: models.MatchedByExternalID},
	models.SourceGouvernement:       {Confidence: 1.0, MatchedBy: models.MatchedByExternalID},
	models.SourceWikidata:           {Confidence: 0.95, MatchedBy: models.MatchedByWikidataPivot},
	models.SourceManual:             {Confidence: 0.8, MatchedBy: models.MatchedByManual},
	models.SourceWikipedia:          {Confidence: 0.7, MatchedBy: models.MatchedByNameOnly},
	models.SourcePresse:             {Confidence: 0.7, MatchedBy: models.MatchedByNameOnly},
}

// Lookup returns the (confidence, matchedBy) pair for links created from source
func Lookup(source models.SourceTag) Entry {
	entry, ok := table[source]
	if !ok {
		entry = Default
	}
	entry.Source = source
	return entry
}

// ForPivot returns the entry for a link from source that was resolved through a Wikidata
// pivot identifier. It never scores above source's own entry.
func ForPivot(source models.SourceTag) Entry {
	pivot := Lookup(models.SourceWikidata)
	own := Lookup(source)
	if own.Confidence < pivot.Confidence {
		pivot.Confidence = own.Confidence
	}
	pivot.Source = source
	return pivot
}

// Entries lists the table, most confident first
func Entries() []Entry {
	entries := make([]Entry, 0, len(table))
	for source := range table {
		entries = append(entries, Lookup(source))
	}
	sortEntries(entries)
	return entries
}

// sortEntries orders by confidence, then by match method rank, then by source
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Confidence != entries[j].Confidence {
			return entries[i].Confidence > entries[j].Confidence
		}
		if ri, rj := Rank(entries[i].MatchedBy), Rank(entries[j].MatchedBy); ri != rj {
			return ri > rj
		}
		return entries[i].Source < entries[j].Source
	})
}

// Rank orders match methods by how much independent verification backs them
func Rank(m models.MatchedBy) int {
	switch m {
	case models.MatchedByExternalID:
		return 4
	case models.MatchedByWikidataPivot:
		return 3
	case models.MatchedByManual:
		return 2
	case models.MatchedByNameOnly:
		return 1
	}
	return 0
}
