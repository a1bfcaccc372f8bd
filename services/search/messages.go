package search

import (
	"context"

	"github.com/trustwork/discovery/db/datastore"
)

type messagesSearcher struct {
	store datastore.Store
}

// Search matches message content within conversations the caller
// participates in. Participation is enforced by the data layer from the
// selection principal; the searcher itself accepts no filters. Anonymous
// callers get an empty result.
func (s *messagesSearcher) Search(ctx context.Context, sanitized SanitizedQuery, principalID string) ([]MessageResult, error) {
	predicates := []datastore.Predicate{notFlagged}
	predicates = append(predicates, tokenPredicates(sanitized.Tokens(), "content")...)

	messages, err := s.store.SelectMessages(ctx, datastore.Selection{
		Predicates: predicates,
		OrderBy: []datastore.Order{
			{Field: "created_at", Desc: true},
		},
		Limit:     perCategoryCap,
		Principal: principalID,
	})
	if err != nil {
		return nil, err
	}

	results := make([]MessageResult, 0, len(messages))
	for _, message := range messages {
		results = append(results, MessageResult{Message: message})
	}
	return results, nil
}
