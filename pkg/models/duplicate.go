package models

import "time"

// DuplicateConfidence buckets a duplicate score
type DuplicateConfidence string

const (
	DuplicateConfidenceCertain  DuplicateConfidence = "CERTAIN"
	DuplicateConfidenceHigh     DuplicateConfidence = "HIGH"
	DuplicateConfidencePossible DuplicateConfidence = "POSSIBLE"
)

// Rank orders buckets, higher is more confident
func (c DuplicateConfidence) Rank() int {
	switch c {
	case DuplicateConfidenceCertain:
		return 3
	case DuplicateConfidenceHigh:
		return 2
	case DuplicateConfidencePossible:
		return 1
	}
	return 0
}

// DuplicateSignal names the signal that contributed most to a duplicate score
type DuplicateSignal string

const (
	DuplicateSignalTitle    DuplicateSignal = "TITLE"
	DuplicateSignalDate     DuplicateSignal = "DATE"
	DuplicateSignalCategory DuplicateSignal = "CATEGORY"
)

// DuplicatePair is two existing records of the same kind that likely describe the same event
type DuplicatePair struct {
	LeftID          string              `json:"left_id" db:"left_id"`
	RightID         string              `json:"right_id" db:"right_id"`
	PoliticianID    string              `json:"politician_id" db:"politician_id"`
	Score           float64             `json:"score" db:"score"`
	Confidence      DuplicateConfidence `json:"confidence" db:"confidence"`
	MatchedBy       DuplicateSignal     `json:"matched_by" db:"matched_by"`
	TitleSimilarity float64             `json:"title_similarity" db:"title_similarity"`
	DaysApart       *int                `json:"days_apart,omitempty" db:"days_apart"`
}

// DuplicateReviewStatus is the lifecycle of a queued duplicate pair
type DuplicateReviewStatus string

const (
	DuplicateReviewPending   DuplicateReviewStatus = "PENDING"
	DuplicateReviewMerged    DuplicateReviewStatus = "MERGED"
	DuplicateReviewDismissed DuplicateReviewStatus = "DISMISSED"
)

// DuplicateReview is a persisted DuplicatePair awaiting a decision
type DuplicateReview struct {
	ID string `json:"id" db:"id"`
	DuplicatePair
	Status     DuplicateReviewStatus `json:"status" db:"status"`
	SurvivorID *string               `json:"survivor_id,omitempty" db:"survivor_id"`
	CreatedAt  time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at" db:"updated_at"`
	ResolvedAt *time.Time            `json:"resolved_at,omitempty" db:"resolved_at"`
}
