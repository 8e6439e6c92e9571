package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/providers"
)

// Input says where a sync reads its provider documents from. Exactly one of File and URL is set;
// IDs turns URL into a template expanded in batches.
type Input struct {
	File string
	URL  string
	IDs  []string
}

func (in Input) validate() error {
	switch {
	case in.File == "" && in.URL == "":
		return errors.New("one of --input or --url is required")
	case in.File != "" && in.URL != "":
		return errors.New("--input and --url are mutually exclusive")
	case len(in.IDs) > 0 && in.URL == "":
		return errors.New("--ids requires --url")
	}
	return nil
}

// Collect reads and decodes the documents of one source. Failed batches and undecodable
// items come back as provider errors; only an unusable input is an error.
func (a *App) Collect(ctx context.Context, source models.SourceTag, in Input) ([]models.CandidateRecord, []error, error) {
	if !providers.Supported(source) {
		return nil, nil, jobs.Fatalf("unsupported source %q", source)
	}
	if err := in.validate(); err != nil {
		return nil, nil, jobs.Fatal(err)
	}

	fetcher, err := a.Fetcher()
	if err != nil {
		return nil, nil, jobs.Fatal(err)
	}
	decoder, err := a.Decoder()
	if err != nil {
		return nil, nil, jobs.Fatal(err)
	}

	var (
		bodies [][]byte
		errs   []error
	)
	switch {
	case in.File != "":
		body, err := os.ReadFile(in.File)
		if err != nil {
			return nil, nil, jobs.Fatal(fmt.Errorf("failed to read %s: %w", in.File, err))
		}
		bodies = [][]byte{body}
	case len(in.IDs) > 0:
		var err error
		bodies, errs, err = fetcher.FetchIDs(ctx, source, in.URL, in.IDs)
		if err != nil {
			return nil, nil, err
		}
	default:
		body, err := fetcher.Get(ctx, source, in.URL)
		if err != nil {
			return nil, nil, jobs.Fatal(err)
		}
		bodies = [][]byte{body}
	}

	var records []models.CandidateRecord
	for _, body := range bodies {
		decoded, decodeErrs, err := decoder.Decode(ctx, source, body)
		if err != nil {
			errs = append(errs, jobs.NewProviderError(string(source), "", err))
			continue
		}
		records = append(records, decoded...)
		errs = append(errs, decodeErrs...)
	}
	return records, errs, nil
}

// AddProviderErrors folds errors that never reached the runner into its summary
func AddProviderErrors(summary *jobs.Summary, errs []error) {
	if summary == nil {
		return
	}
	for _, err := range errs {
		summary.Add(jobs.OutcomeError)
		summary.AddError("", err)
	}
}
