package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

func decode(t *testing.T, source models.SourceTag, body string) ([]models.CandidateRecord, []error) {
	t.Helper()
	records, errs, err := NewDecoder(testLogger()).Decode(context.Background(), source, []byte(body))
	require.NoError(t, err)
	return records, errs
}

func TestDecode_Assemblee(t *testing.T) {
	body := `{"export": {"acteurs": {"acteur": [
		{
			"uid": {"#text": "PA1008"},
			"etatCivil": {
				"ident": {"civ": "M.", "prenom": "Jean", "nom": "Dupont"},
				"infoNaissance": {"dateNais": "1960-03-02"},
				"dateDeces": null
			},
			"mandats": {"mandat": [
				{"typeOrgane": "ASSEMBLEE", "dateDebut": "2017-06-21", "dateFin": "2022-06-21",
				 "infosQualite": {"codeQualite": "membre"},
				 "election": {"lieu": {"departement": "Somme", "numCirco": "1"}}},
				{"typeOrgane": "GOUVERNEMENT", "dateDebut": "2022-07-04", "dateFin": null,
				 "infosQualite": {"libQualite": "Ministre de l'Intérieur"}},
				{"typeOrgane": "COMPER", "dateDebut": "2017-06-29"}
			]}
		},
		{
			"uid": {"#text": "PA2000"},
			"etatCivil": {"ident": {"prenom": "Marie", "nom": "Curie"}},
			"mandats": {"mandat": {"typeOrgane": "ASSEMBLEE", "dateDebut": "2024-07-18"}}
		}
	]}}}`

	records, errs := decode(t, models.SourceAssembleeNationale, body)
	assert.Empty(t, errs)
	require.Len(t, records, 2)

	jean := records[0]
	assert.Equal(t, "Jean Dupont", jean.Name)
	assert.Equal(t, "PA1008", jean.ExternalID)
	assert.Equal(t, models.SourceAssembleeNationale, jean.Source)
	assert.Equal(t, models.DatePtr(1960, time.March, 2), jean.BirthDate)
	require.Len(t, jean.Mandates, 2)
	assert.Equal(t, models.MandateDepute, jean.Mandates[0].Type)
	assert.Equal(t, "Somme (1)", jean.Mandates[0].Constituency)
	assert.Equal(t, models.MandateMinistre, jean.Mandates[1].Type)
	assert.Nil(t, jean.Mandates[1].EndDate)

	// a lone mandat object is treated as a one-element list
	require.Len(t, records[1].Mandates, 1)
	assert.Equal(t, models.Date(2024, time.July, 18), records[1].Mandates[0].StartDate)
}

func TestDecode_AssembleeSingleActeurFile(t *testing.T) {
	body := `{"acteur": {"uid": "PA3000", "etatCivil": {"ident": {"prenom": "Anne", "nom": "Martin"}}}}`

	records, errs := decode(t, models.SourceAssembleeNationale, body)
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "PA3000", records[0].ExternalID)
}

func TestDecode_Senat(t *testing.T) {
	body := `[
		{"matricule": "19000A", "prenom_usuel": "Jean", "nom_usuel": "Dupont",
		 "date_naissance": "02/03/1960", "circonscription": "Somme", "serie": 2,
		 "date_debut_mandat": "2017-10-02"},
		{"matricule": "", "prenom_usuel": "Sans", "nom_usuel": "Matricule"},
		{"matricule": "19000B", "prenom_usuel": "Bad", "nom_usuel": "Date", "date_naissance": "hier"}
	]`

	records, errs := decode(t, models.SourceSenat, body)
	require.Len(t, records, 1)
	require.Len(t, errs, 2)

	r := records[0]
	assert.Equal(t, "19000A", r.ExternalID)
	assert.Equal(t, models.DatePtr(1960, time.March, 2), r.BirthDate)
	require.Len(t, r.Mandates, 1)
	require.NotNil(t, r.Mandates[0].RenewalSeries)
	assert.Equal(t, 2, *r.Mandates[0].RenewalSeries)
	assert.Equal(t, models.MandateSenateur, r.Mandates[0].Type)

	for _, err := range errs {
		var providerErr *jobs.ProviderError
		require.True(t, errors.As(err, &providerErr))
		assert.Equal(t, string(models.SourceSenat), providerErr.Source)
	}
}

func TestDecode_Europarl(t *testing.T) {
	body := `{"meps": [
		{"id": 124831, "fullName": "Marie CURIE", "country": "France", "mandateStart": "2019-07-02"},
		{"id": 97058, "fullName": "Hans Muster", "country": "Germany"}
	]}`

	records, errs := decode(t, models.SourceParlementEuropeen, body)
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "124831", records[0].ExternalID)
	assert.Equal(t, "Marie CURIE", records[0].Name)
	require.Len(t, records[0].Mandates, 1)
	assert.Equal(t, models.MandateDeputeEuropeen, records[0].Mandates[0].Type)
}

func TestDecode_Wikidata(t *testing.T) {
	body := `{"head": {"vars": ["item"]}, "results": {"bindings": [
		{
			"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q42"},
			"itemLabel": {"type": "literal", "value": "Jean Dupont"},
			"birth": {"type": "literal", "value": "+1960-03-02T00:00:00Z"},
			"senat": {"type": "literal", "value": "19000A"}
		},
		{"item": {"type": "uri", "value": "http://www.wikidata.org/entity/L1"}, "itemLabel": {"value": "lexeme"}}
	]}}`

	records, errs := decode(t, models.SourceWikidata, body)
	require.Len(t, records, 1)
	require.Len(t, errs, 1)

	r := records[0]
	assert.Equal(t, "Q42", r.ExternalID)
	assert.Equal(t, models.SourceWikidata, r.Source)
	assert.Equal(t, models.DatePtr(1960, time.March, 2), r.BirthDate)
	assert.Equal(t, map[models.SourceTag]string{models.SourceSenat: "19000A"}, r.PivotIDs)
}

func TestDecode_Manual(t *testing.T) {
	body := `{"entries": [{"name": "Jean Dupont", "birth_date": "1960-03-02", "wikidata_id": "Q42"}]}`

	records, errs := decode(t, models.SourceManual, body)
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "Q42", records[0].PivotIDs[models.SourceWikidata])
	assert.Empty(t, records[0].ExternalID)
}

func TestDecode_ManualYAML(t *testing.T) {
	body := `
entries:
  - name: Jean Dupont
    birth_date: "1960-03-02"
    wikidata_id: Q42
  - name: Marie Curie
    external_id: M-2
`

	records, errs := decode(t, models.SourceManual, body)
	assert.Empty(t, errs)
	require.Len(t, records, 2)
	assert.Equal(t, models.DatePtr(1960, time.March, 2), records[0].BirthDate)
	assert.Equal(t, "Q42", records[0].PivotIDs[models.SourceWikidata])
	assert.Equal(t, "M-2", records[1].ExternalID)

	_, _, err := NewDecoder(testLogger()).Decode(context.Background(), models.SourceManual, []byte("just a sentence"))
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	d := NewDecoder(testLogger())

	_, _, err := d.Decode(context.Background(), models.SourceSenat, []byte(`{not json`))
	assert.Error(t, err)

	_, _, err = d.Decode(context.Background(), models.SourcePresse, []byte(`[]`))
	assert.Error(t, err)
	assert.False(t, Supported(models.SourcePresse))
	assert.True(t, Supported(models.SourceWikidata))
}

func TestEvaluator(t *testing.T) {
	e := NewEvaluator()
	data := map[string]any{
		"n":     float64(2),
		"s":     "12",
		"x":     1.5,
		"list":  []any{"a"},
		"empty": "",
	}

	s, err := e.String("n", data)
	require.NoError(t, err)
	assert.Equal(t, "2", s)

	s, err = e.String("x", data)
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)

	n, err := e.Int("s", data)
	require.NoError(t, err)
	assert.Equal(t, 12, *n)

	n, err = e.Int("missing", data)
	require.NoError(t, err)
	assert.Nil(t, n)

	d, err := e.Date("empty", data)
	require.NoError(t, err)
	assert.Nil(t, d)

	list, err := e.Slice("n", data)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, e.Validate("a.["))
	_, err = e.Evaluate("a.[", data)
	assert.Error(t, err)
}
