package merging

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/iris/pkg/models"
)

// Plan is the full decision for one merge, computed before anything is written
type Plan struct {
	SurvivorID   string `json:"survivor_id"`
	LoserID      string `json:"loser_id"`
	PoliticianID string `json:"politician_id"`
	Reason       string `json:"reason"`

	MoveSources []models.AffairSource `json:"move_sources"`
	SkipSources []models.AffairSource `json:"skip_sources"`
	MoveLinks   []models.ExternalLink `json:"move_links"`
	SkipLinks   []models.ExternalLink `json:"skip_links"`

	// SourceCount is the number of sources the survivor holds after the merge
	SourceCount int `json:"source_count"`
}

const (
	ReasonMoreSources   = "more_sources"
	ReasonEarlierCreate = "earlier_created_at"
	ReasonSmallerID     = "smaller_id"
	ReasonCallerChosen  = "caller_chosen"
)

// ChooseSurvivor applies the survivor policy: more sources wins, then the earlier
// creation time, then the smaller id.
func ChooseSurvivor(a, b *models.AffairRecord) (survivor, loser *models.AffairRecord, reason string) {
	switch {
	case len(a.Sources) != len(b.Sources):
		if len(a.Sources) > len(b.Sources) {
			return a, b, ReasonMoreSources
		}
		return b, a, ReasonMoreSources
	case !a.Affair.CreatedAt.Equal(b.Affair.CreatedAt):
		if a.Affair.CreatedAt.Before(b.Affair.CreatedAt) {
			return a, b, ReasonEarlierCreate
		}
		return b, a, ReasonEarlierCreate
	case a.Affair.ID <= b.Affair.ID:
		return a, b, ReasonSmallerID
	default:
		return b, a, ReasonSmallerID
	}
}

// PlanMerge picks the survivor by policy and plans the move
func PlanMerge(a, b *models.AffairRecord) (*Plan, error) {
	survivor, loser, reason := ChooseSurvivor(a, b)
	return plan(survivor, loser, reason)
}

// PlanInto plans a merge in a direction chosen by the caller
func PlanInto(survivor, loser *models.AffairRecord) (*Plan, error) {
	return plan(survivor, loser, ReasonCallerChosen)
}

func plan(survivor, loser *models.AffairRecord, reason string) (*Plan, error) {
	if survivor.Affair.ID == loser.Affair.ID {
		return nil, fmt.Errorf("cannot merge affair %s into itself", survivor.Affair.ID)
	}
	if survivor.Affair.PoliticianID != loser.Affair.PoliticianID {
		return nil, fmt.Errorf("affairs %s and %s belong to different politicians", survivor.Affair.ID, loser.Affair.ID)
	}

	p := &Plan{
		SurvivorID:   survivor.Affair.ID,
		LoserID:      loser.Affair.ID,
		PoliticianID: survivor.Affair.PoliticianID,
		Reason:       reason,
	}

	urls := make(map[string]bool, len(survivor.Sources))
	for _, s := range survivor.Sources {
		urls[sourceKey(s.URL)] = true
	}
	for _, s := range loser.Sources {
		key := sourceKey(s.URL)
		if urls[key] {
			p.SkipSources = append(p.SkipSources, s)
			continue
		}
		urls[key] = true
		p.MoveSources = append(p.MoveSources, s)
	}
	p.SourceCount = len(survivor.Sources) + len(p.MoveSources)

	held := make(map[models.SourceTag]bool, len(survivor.Links))
	for _, l := range survivor.Links {
		held[l.Source] = true
	}
	for _, l := range loser.Links {
		if held[l.Source] {
			p.SkipLinks = append(p.SkipLinks, l)
			continue
		}
		held[l.Source] = true
		p.MoveLinks = append(p.MoveLinks, l)
	}

	return p, nil
}

func sourceKey(url string) string {
	return strings.TrimSpace(url)
}

// SourceIDs returns the ids of the sources to move
func (p *Plan) SourceIDs() []string {
	return ectolinq.Map(p.MoveSources, func(s models.AffairSource) string { return s.ID })
}

// LinkIDs returns the ids of the links to move
func (p *Plan) LinkIDs() []string {
	return ectolinq.Map(p.MoveLinks, func(l models.ExternalLink) string { return l.ID })
}
