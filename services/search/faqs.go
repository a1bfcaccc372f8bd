package search

import (
	"context"
	"sort"
	"strings"

	"github.com/trustwork/discovery/db/datastore"
)

type faqsSearcher struct {
	store datastore.Store
}

// Search matches public FAQ entries on question and answer. Ranking is by
// lexical match count descending, then stable by id, which the searcher
// computes itself since the data layer only orders by columns.
func (s *faqsSearcher) Search(ctx context.Context, sanitized SanitizedQuery, principalID string) ([]FAQResult, error) {
	predicates := []datastore.Predicate{notFlagged}
	predicates = append(predicates, tokenPredicates(sanitized.Tokens(), "question", "answer")...)

	faqs, err := s.store.SelectFAQs(ctx, datastore.Selection{
		Predicates: predicates,
		OrderBy:    []datastore.Order{{Field: "id"}},
		Principal:  principalID,
	})
	if err != nil {
		return nil, err
	}

	tokens := sanitized.Tokens()
	results := make([]FAQResult, 0, len(faqs))
	for _, faq := range faqs {
		results = append(results, FAQResult{
			FAQ:        faq,
			matchCount: matchCount(faq, tokens),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].matchCount != results[j].matchCount {
			return results[i].matchCount > results[j].matchCount
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > perCategoryCap {
		results = results[:perCategoryCap]
	}
	return results, nil
}

func matchCount(faq datastore.FAQ, tokens []string) int {
	text := strings.ToLower(faq.Question + " " + faq.Answer)
	count := 0
	for _, token := range tokens {
		count += strings.Count(text, strings.ToLower(token))
	}
	return count
}
