package jobs

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome is the terminal category of one processed record
type Outcome string

const (
	OutcomeError   Outcome = "ERROR"
	OutcomeSkipped Outcome = "SKIPPED"
)

// DefaultErrorSampleSize caps the error messages kept in a Summary
const DefaultErrorSampleSize = 10

// Summary is the end-of-run report: a count per outcome and the first N error messages
type Summary struct {
	Job        string          `json:"job"`
	Counts     map[Outcome]int `json:"counts"`
	Errors     []string        `json:"errors"`
	ErrorCount int             `json:"error_count"`
	Resumed    int             `json:"resumed_from"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`

	sampleSize int
}

// NewSummary creates an empty summary keeping at most sampleSize error messages
func NewSummary(job string, sampleSize int) *Summary {
	if sampleSize <= 0 {
		sampleSize = DefaultErrorSampleSize
	}
	return &Summary{
		Job:        job,
		Counts:     make(map[Outcome]int),
		sampleSize: sampleSize,
	}
}

// Add counts one record with the given outcome
func (s *Summary) Add(outcome Outcome) {
	s.Counts[outcome]++
}

// AddError counts an error and keeps its message if the sample is not full
func (s *Summary) AddError(key string, err error) {
	s.ErrorCount++
	if len(s.Errors) >= s.sampleSize {
		return
	}
	if key == "" {
		s.Errors = append(s.Errors, err.Error())
		return
	}
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", key, err))
}

// Count returns the number of records with outcome
func (s *Summary) Count(outcome Outcome) int {
	return s.Counts[outcome]
}

// Total returns the number of records counted
func (s *Summary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Fields flattens the summary for structured logging
func (s *Summary) Fields() map[string]any {
	fields := map[string]any{
		"job":         s.Job,
		"total":       s.Total(),
		"error_count": s.ErrorCount,
	}
	for outcome, n := range s.Counts {
		fields["count_"+strings.ToLower(string(outcome))] = n
	}
	return fields
}

// String renders the report printed at the end of every run
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d records", s.Job, s.Total())
	if s.Resumed > 0 {
		fmt.Fprintf(&b, " (resumed after %d)", s.Resumed)
	}
	if !s.FinishedAt.IsZero() && !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, " in %s", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n")

	outcomes := make([]string, 0, len(s.Counts))
	for outcome := range s.Counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(&b, "  %-16s %d\n", outcome, s.Counts[Outcome(outcome)])
	}

	if s.ErrorCount > 0 {
		fmt.Fprintf(&b, "errors (%d, showing %d):\n", s.ErrorCount, len(s.Errors))
		for _, msg := range s.Errors {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}
	return b.String()
}
