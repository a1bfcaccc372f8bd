package search

import (
	"context"

	"github.com/trustwork/discovery/db/datastore"
)

type gigsSearcher struct {
	store datastore.Store
}

// Search matches gigs on title and description. A budget filter intersects
// the gig's own budget range rather than requiring containment.
func (s *gigsSearcher) Search(ctx context.Context, sanitized SanitizedQuery, principalID string) ([]GigResult, error) {
	predicates := []datastore.Predicate{notFlagged}
	predicates = append(predicates, tokenPredicates(sanitized.Tokens(), "title", "description")...)

	if sanitized.Filters.Location != "" {
		predicates = append(predicates, substrPredicate("location", sanitized.Filters.Location))
	}
	if sanitized.Filters.Remote != nil {
		predicates = append(predicates, eqPredicate("remote", *sanitized.Filters.Remote))
	}
	if sanitized.Filters.Verified != nil {
		predicates = append(predicates, eqPredicate("verified", *sanitized.Filters.Verified))
	}
	if sanitized.Filters.BudgetMin != nil {
		predicates = append(predicates, datastore.Predicate{
			Field: "budget_max", Op: datastore.OpGte, Value: *sanitized.Filters.BudgetMin,
		})
	}
	if sanitized.Filters.BudgetMax != nil {
		predicates = append(predicates, datastore.Predicate{
			Field: "budget_min", Op: datastore.OpLte, Value: *sanitized.Filters.BudgetMax,
		})
	}

	gigs, err := s.store.SelectGigs(ctx, datastore.Selection{
		Predicates: predicates,
		OrderBy: []datastore.Order{
			{Field: "verified", Desc: true},
			{Field: "posted_at", Desc: true},
		},
		Limit:     perCategoryCap,
		Principal: principalID,
	})
	if err != nil {
		return nil, err
	}

	results := make([]GigResult, 0, len(gigs))
	for _, gig := range gigs {
		results = append(results, GigResult{Gig: gig})
	}
	return results, nil
}
