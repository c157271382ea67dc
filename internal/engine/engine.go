package engine

import (
	"cmp"
	"errors"
	"slices"

	"campaign-scheduler/internal/cache"
	"campaign-scheduler/internal/customer"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Match assigns each customer to at most one campaign. Campaigns are
// evaluated by ascending priority (declaration order for ties) and customers
// keep their input order. A nil slice is a caller error; an empty one is not.
func Match(campaigns []Campaign, customers []customer.Customer) ([]Assignment, error) {
	if campaigns == nil {
		return nil, errors.Join(ErrInvalidArgument, errors.New("campaigns is nil"))
	}
	if customers == nil {
		return nil, errors.Join(ErrInvalidArgument, errors.New("customers is nil"))
	}

	out := []Assignment{}
	assigned := make(map[int]struct{}, len(customers))
	for _, i := range priorityOrder(campaigns) {
		c := &campaigns[i]
		for j := range customers {
			cu := &customers[j]
			if _, ok := assigned[cu.ID]; ok {
				continue
			}
			if !c.Filter.Match(*cu) {
				continue
			}
			assigned[cu.ID] = struct{}{}
			out = append(out, Assignment{Campaign: c, Customer: cu})
		}
	}
	return out, nil
}

// priorityOrder returns campaign indexes sorted stably by priority.
func priorityOrder(cs []Campaign) []int {
	idx := make([]int, len(cs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(cs[a].Priority, cs[b].Priority) })
	return idx
}

type snapshot struct{ campaigns []Campaign }

// CampaignEngine holds the campaign set of the current pass and matches
// customer batches against it without locking.
type CampaignEngine struct{ snap cache.Snapshot[snapshot] }

func NewEngine() *CampaignEngine { return &CampaignEngine{} }

// BuildSnapshot swaps in a copy of campaigns for subsequent matches.
func (e *CampaignEngine) BuildSnapshot(campaigns []Campaign) {
	e.snap.Store(snapshot{campaigns: slices.Clone(campaigns)})
}

func (e *CampaignEngine) Campaigns() []Campaign {
	s, _ := e.snap.Load()
	return s.campaigns
}

// Match runs Match against the current snapshot. Before the first
// BuildSnapshot the campaign set is empty.
func (e *CampaignEngine) Match(customers []customer.Customer) ([]Assignment, error) {
	s, ok := e.snap.Load()
	if !ok || s.campaigns == nil {
		s.campaigns = []Campaign{}
	}
	return Match(s.campaigns, customers)
}
