package search

import (
	"context"

	"github.com/trustwork/discovery/db/datastore"
)

const roleFreelancer = "freelancer"

type freelancersSearcher struct {
	store datastore.Store
}

// Search matches freelancer profiles on name, title and skills. Only
// accounts with the freelancer role are returned. Ranking favours verified
// profiles, then rating, then completed jobs.
func (s *freelancersSearcher) Search(ctx context.Context, sanitized SanitizedQuery, principalID string) ([]FreelancerResult, error) {
	predicates := []datastore.Predicate{
		notFlagged,
		eqPredicate("role", roleFreelancer),
	}
	predicates = append(predicates, tokenPredicates(sanitized.Tokens(), "full_name", "title", "skills")...)

	if sanitized.Filters.Location != "" {
		predicates = append(predicates, substrPredicate("province", sanitized.Filters.Location))
	}
	if sanitized.Filters.Remote != nil {
		predicates = append(predicates, eqPredicate("remote", *sanitized.Filters.Remote))
	}
	if sanitized.Filters.Verified != nil {
		predicates = append(predicates, eqPredicate("verified", *sanitized.Filters.Verified))
	}
	if sanitized.Filters.MinRating != nil {
		predicates = append(predicates, datastore.Predicate{
			Field: "rating", Op: datastore.OpGte, Value: *sanitized.Filters.MinRating,
		})
	}
	if len(sanitized.Filters.Skills) > 0 {
		predicates = append(predicates, datastore.Predicate{
			Field: "skills", Op: datastore.OpOverlaps, Value: sanitized.Filters.Skills,
		})
	}

	freelancers, err := s.store.SelectFreelancers(ctx, datastore.Selection{
		Predicates: predicates,
		OrderBy: []datastore.Order{
			{Field: "verified", Desc: true},
			{Field: "rating", Desc: true},
			{Field: "jobs_completed", Desc: true},
		},
		Limit:     perCategoryCap,
		Principal: principalID,
	})
	if err != nil {
		return nil, err
	}

	results := make([]FreelancerResult, 0, len(freelancers))
	for _, freelancer := range freelancers {
		results = append(results, FreelancerResult{Freelancer: freelancer})
	}
	return results, nil
}
