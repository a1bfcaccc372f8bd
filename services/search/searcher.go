package search

import (
	"github.com/trustwork/discovery/db/datastore"
)

// perCategoryCap bounds how many records one category may return.
const perCategoryCap = 50

// notFlagged removes moderated content unconditionally.
var notFlagged = datastore.Predicate{Field: "flagged", Op: datastore.OpEq, Value: false}

// tokenPredicates requires every query token to appear in at least one of
// the searchable fields (AND of tokens, OR of fields).
func tokenPredicates(tokens []string, fields ...string) []datastore.Predicate {
	predicates := make([]datastore.Predicate, 0, len(tokens))
	for _, token := range tokens {
		predicates = append(predicates, datastore.Predicate{
			Op:     datastore.OpAnyFieldSubstr,
			Fields: fields,
			Value:  token,
		})
	}
	return predicates
}

func eqPredicate(field string, value any) datastore.Predicate {
	return datastore.Predicate{Field: field, Op: datastore.OpEq, Value: value}
}

func substrPredicate(field string, value string) datastore.Predicate {
	return datastore.Predicate{Field: field, Op: datastore.OpSubstr, Value: value}
}
