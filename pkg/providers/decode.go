// Package providers turns provider payloads into candidate records. Each provider has its
// own tagged variant, decoded from loosely typed JSON with JMESPath expressions.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/tracing"
	"github.com/Ramsey-B/iris/pkg/validation"
)

// layout locates the items of a provider document and unwraps each one
type layout struct {
	items  string
	item   string
	decode func(e *Evaluator, item any) (Record, error)
}

var layouts = map[models.SourceTag]layout{
	models.SourceAssembleeNationale: {
		items:  "export.acteurs.acteur || acteurs.acteur || acteur || @",
		item:   "acteur || @",
		decode: decodeAssembleeActeur,
	},
	models.SourceSenat: {
		items:  "senateurs || @",
		item:   "@",
		decode: decodeSenatSenateur,
	},
	models.SourceParlementEuropeen: {
		items:  "meps.mep || meps || @",
		item:   "@",
		decode: decodeEuroparlMember,
	},
	models.SourceWikidata: {
		items:  "results.bindings",
		item:   "@",
		decode: decodeWikidataBinding,
	},
	models.SourceManual: {
		items:  "entries || @",
		item:   "@",
		decode: decodeManualEntry,
	},
}

// Supported reports whether source has a decoder
func Supported(source models.SourceTag) bool {
	_, ok := layouts[source]
	return ok
}

// Decoder decodes provider documents into candidate records
type Decoder struct {
	eval   *Evaluator
	logger ectologger.Logger
}

// NewDecoder creates a decoder
func NewDecoder(logger ectologger.Logger) *Decoder {
	return &Decoder{
		eval:   NewEvaluator(),
		logger: logger,
	}
}

// Decode parses body as a document from source. It returns every item that decoded and
// validated; the others come back as ProviderErrors. An unreadable document is an error.
func (d *Decoder) Decode(ctx context.Context, source models.SourceTag, body []byte) ([]models.CandidateRecord, []error, error) {
	_, span := tracing.StartSpan(ctx, "providers.Decoder.Decode")
	defer span.End()

	l, ok := layouts[source]
	if !ok {
		return nil, nil, fmt.Errorf("no decoder for source %s", source)
	}

	doc, err := parseDocument(source, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s document: %w", source, err)
	}

	items, err := d.eval.Slice(l.items, doc)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []models.CandidateRecord
		errs    []error
	)
	for i, raw := range items {
		item, err := d.eval.Evaluate(l.item, raw)
		if err != nil {
			errs = append(errs, jobs.NewProviderError(string(source), itemKey(i), err))
			continue
		}

		record, err := l.decode(d.eval, item)
		if err != nil {
			errs = append(errs, jobs.NewProviderError(string(source), itemKey(i), err))
			continue
		}
		if record == nil {
			continue
		}
		if err := validation.Struct(record); err != nil {
			errs = append(errs, jobs.NewProviderError(string(source), record.Key(), err))
			continue
		}

		records = append(records, record.Candidate())
	}

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"source":  source,
		"items":   len(items),
		"records": len(records),
		"errors":  len(errs),
	}).Info("Decoded provider document")

	return records, errs, nil
}

// parseDocument reads a JSON document. Manual entry files may also be written in YAML.
func parseDocument(source models.SourceTag, body []byte) (any, error) {
	var doc any
	jsonErr := json.Unmarshal(body, &doc)
	if jsonErr == nil || source != models.SourceManual {
		return doc, jsonErr
	}

	var raw any
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return nil, jsonErr
	}
	if _, ok := raw.(map[string]any); !ok {
		if _, ok := raw.([]any); !ok {
			return nil, jsonErr
		}
	}

	// round trip so numbers and dates look exactly as encoding/json produces them
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	doc = nil
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fields evaluates a set of string expressions against item, stopping at the first error
type fields struct {
	eval *Evaluator
	item any
	err  error
}

func (f *fields) str(expression string) string {
	if f.err != nil {
		return ""
	}
	s, err := f.eval.String(expression, f.item)
	f.err = err
	return s
}

func (f *fields) date(expression string) *time.Time {
	if f.err != nil {
		return nil
	}
	d, err := f.eval.Date(expression, f.item)
	f.err = err
	return d
}

func (f *fields) integer(expression string) *int {
	if f.err != nil {
		return nil
	}
	n, err := f.eval.Int(expression, f.item)
	f.err = err
	return n
}

func decodeAssembleeActeur(e *Evaluator, item any) (Record, error) {
	f := &fields{eval: e, item: item}
	acteur := AssembleeActeur{
		UID:       f.str(`uid."#text" || uid`),
		FirstName: f.str("etatCivil.ident.prenom"),
		LastName:  f.str("etatCivil.ident.nom"),
		BirthDate: f.date("etatCivil.infoNaissance.dateNais"),
		DeathDate: f.date("etatCivil.dateDeces"),
	}
	if f.err != nil {
		return nil, f.err
	}

	mandats, err := e.Slice("mandats.mandat", item)
	if err != nil {
		return nil, err
	}
	for _, raw := range mandats {
		m := &fields{eval: e, item: raw}
		mandat := AssembleeMandat{
			Organ:      m.str("typeOrgane"),
			Quality:    m.str("infosQualite.libQualite || infosQualite.codeQualite"),
			Start:      m.date("dateDebut"),
			End:        m.date("dateFin"),
			Department: m.str("election.lieu.departement"),
			District:   m.str("election.lieu.numCirco"),
		}
		if m.err != nil {
			return nil, m.err
		}
		acteur.Mandats = append(acteur.Mandats, mandat)
	}
	return acteur, nil
}

func decodeSenatSenateur(e *Evaluator, item any) (Record, error) {
	f := &fields{eval: e, item: item}
	s := SenatSenateur{
		Matricule:    f.str("matricule"),
		FirstName:    f.str("prenom_usuel || prenom"),
		LastName:     f.str("nom_usuel || nom"),
		BirthDate:    f.date("date_naissance"),
		DeathDate:    f.date("date_deces"),
		Constituency: f.str("circonscription"),
		Series:       f.integer("serie"),
		MandateStart: f.date("date_debut_mandat"),
		MandateEnd:   f.date("date_fin_mandat"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return s, nil
}

func decodeEuroparlMember(e *Evaluator, item any) (Record, error) {
	f := &fields{eval: e, item: item}
	m := EuroparlMember{
		ID:           f.str("id"),
		FullName:     f.str("fullName || full_name"),
		Country:      f.str("country"),
		MandateStart: f.date("mandateStart || mandate_start"),
		MandateEnd:   f.date("mandateEnd || mandate_end"),
	}
	if f.err != nil {
		return nil, f.err
	}
	if !m.French() {
		return nil, nil
	}
	return m, nil
}

func decodeWikidataBinding(e *Evaluator, item any) (Record, error) {
	f := &fields{eval: e, item: item}
	w := WikidataBinding{
		QID:         qid(f.str("item.value")),
		Label:       f.str("itemLabel.value"),
		BirthDate:   f.date("birth.value"),
		DeathDate:   f.date("death.value"),
		AssembleeID: f.str("assemblee.value"),
		SenatID:     f.str("senat.value"),
		EuroparlID:  f.str("europarl.value"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return w, nil
}

func decodeManualEntry(e *Evaluator, item any) (Record, error) {
	f := &fields{eval: e, item: item}
	m := ManualEntry{
		Name:       f.str("name"),
		FirstName:  f.str("first_name"),
		LastName:   f.str("last_name"),
		BirthDate:  f.date("birth_date"),
		DeathDate:  f.date("death_date"),
		ExternalID: f.str("external_id"),
		WikidataID: f.str("wikidata_id"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return m, nil
}
