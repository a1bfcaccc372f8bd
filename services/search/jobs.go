package search

import (
	"context"

	"github.com/trustwork/discovery/db/datastore"
)

type jobsSearcher struct {
	store datastore.Store
}

// Search matches jobs on title, company and description, honouring the
// location, remote and verified filters. Verified postings rank first,
// newest first within each group.
func (s *jobsSearcher) Search(ctx context.Context, sanitized SanitizedQuery, principalID string) ([]JobResult, error) {
	predicates := []datastore.Predicate{notFlagged}
	predicates = append(predicates, tokenPredicates(sanitized.Tokens(), "title", "company", "description")...)

	if sanitized.Filters.Location != "" {
		predicates = append(predicates, substrPredicate("location", sanitized.Filters.Location))
	}
	if sanitized.Filters.Remote != nil {
		predicates = append(predicates, eqPredicate("remote", *sanitized.Filters.Remote))
	}
	if sanitized.Filters.Verified != nil {
		predicates = append(predicates, eqPredicate("verified", *sanitized.Filters.Verified))
	}

	jobs, err := s.store.SelectJobs(ctx, datastore.Selection{
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

	results := make([]JobResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, JobResult{Job: job})
	}
	return results, nil
}
