package matching

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/iris/pkg/models"
	"github.com/Ramsey-B/iris/pkg/normalizers"
)

// Pool is the set of existing politicians a batch is matched against,
// indexed by normalized name and by pivot identifier.
type Pool struct {
	entities map[string]*models.Politician
	byName   map[string][]string
	// pivot source -> pivot external id -> politician id
	pivots map[models.SourceTag]map[string]string
}

// NewPool indexes politicians by their normalized full name and "first last" form
func NewPool(politicians []models.Politician) *Pool {
	p := &Pool{
		entities: make(map[string]*models.Politician, len(politicians)),
		byName:   make(map[string][]string),
		pivots:   make(map[models.SourceTag]map[string]string),
	}
	for i := range politicians {
		p.Add(politicians[i])
	}
	return p
}

// Add indexes one politician
func (p *Pool) Add(pol models.Politician) {
	if _, exists := p.entities[pol.ID]; exists {
		p.Remove(pol.ID)
	}
	p.entities[pol.ID] = &pol
	for _, key := range nameKeys(&pol) {
		p.byName[key] = append(p.byName[key], pol.ID)
	}
}

// AddPivot records that politicianID already owns the link (source, externalID)
func (p *Pool) AddPivot(source models.SourceTag, externalID, politicianID string) {
	if externalID == "" {
		return
	}
	if p.pivots[source] == nil {
		p.pivots[source] = make(map[string]string)
	}
	p.pivots[source][externalID] = politicianID
}

// Remove drops a politician from the pool, e.g. once it has been linked to the batch source
func (p *Pool) Remove(id string) {
	pol, ok := p.entities[id]
	if !ok {
		return
	}
	delete(p.entities, id)
	for _, key := range nameKeys(pol) {
		ids := p.byName[key]
		kept := ids[:0]
		for _, other := range ids {
			if other != id {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(p.byName, key)
		} else {
			p.byName[key] = kept
		}
	}
}

// Get returns a politician still in the pool
func (p *Pool) Get(id string) (*models.Politician, bool) {
	pol, ok := p.entities[id]
	return pol, ok
}

// Len returns the number of politicians in the pool
func (p *Pool) Len() int {
	return len(p.entities)
}

// lookup returns the ids indexed under any of keys, deduplicated and sorted
func (p *Pool) lookup(keys []string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, key := range keys {
		for _, id := range p.byName[key] {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// pivot returns the politician owning the pivot identifier if it is still in the pool
func (p *Pool) pivot(source models.SourceTag, externalID string) (string, bool) {
	id, ok := p.pivots[source][externalID]
	if !ok {
		return "", false
	}
	if _, inPool := p.entities[id]; !inPool {
		return "", false
	}
	return id, true
}

func nameKeys(pol *models.Politician) []string {
	var keys []string
	add := func(s string) {
		key := normalizers.NormalizeName(s)
		if key == "" {
			return
		}
		for _, k := range keys {
			if k == key {
				return
			}
		}
		keys = append(keys, key)
	}
	add(pol.FullName)
	add(strings.TrimSpace(pol.FirstName + " " + pol.LastName))
	return keys
}
