package models

// SourceTag identifies the provider a record or link comes from
type SourceTag string

const (
	SourceAssembleeNationale SourceTag = "ASSEMBLEE_NATIONALE"
	SourceSenat              SourceTag = "SENAT"
	SourceParlementEuropeen  SourceTag = "PARLEMENT_EUROPEEN"
	// SourceRNE is the répertoire national des élus published by the interior ministry
	SourceRNE          SourceTag = "RNE"
	SourceGouvernement SourceTag = "GOUVERNEMENT"
	SourceWikidata     SourceTag = "WIKIDATA"
	SourceManual       SourceTag = "MANUAL"
	SourceWikipedia    SourceTag = "WIKIPEDIA"
	SourcePresse       SourceTag = "PRESSE"
)

// KnownSources lists every source tag the system ships with
var KnownSources = []SourceTag{
	SourceAssembleeNationale,
	SourceSenat,
	SourceParlementEuropeen,
	SourceRNE,
	SourceGouvernement,
	SourceWikidata,
	SourceManual,
	SourceWikipedia,
	SourcePresse,
}

// MatchedBy records the method that produced an external link
type MatchedBy string

const (
	MatchedByExternalID    MatchedBy = "EXTERNAL_ID"
	MatchedByWikidataPivot MatchedBy = "WIKIDATA_PIVOT"
	MatchedByNameOnly      MatchedBy = "NAME_ONLY"
	MatchedByManual        MatchedBy = "MANUAL"
)
