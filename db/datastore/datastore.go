// Package datastore is the access-controlled data layer for marketplace
// content. Searchers pass structured predicates; implementations are
// responsible for parameterising them — callers never build query strings.
package datastore

import "context"

// PrincipalAnonymous is the sentinel identity for unauthenticated callers.
const PrincipalAnonymous = "anonymous"

type Op string

const (
	// OpEq matches when the field equals the value.
	OpEq Op = "eq"
	// OpSubstr matches when the field contains the value, case-insensitively.
	OpSubstr Op = "substr"
	// OpAnyFieldSubstr matches when any of Fields contains the value,
	// case-insensitively.
	OpAnyFieldSubstr Op = "any_substr"
	// OpGte matches when the numeric field is >= the value.
	OpGte Op = "gte"
	// OpLte matches when the numeric field is <= the value.
	OpLte Op = "lte"
	// OpOverlaps matches when the list field shares any element with the
	// value ([]string).
	OpOverlaps Op = "overlaps"
)

type Predicate struct {
	Field  string
	Fields []string // used by OpAnyFieldSubstr
	Op     Op
	Value  any
}

type Order struct {
	Field string
	Desc  bool
}

// Selection describes one table read. Principal is the identity the read
// runs under; row-level visibility (message participation) is enforced here,
// not by callers.
type Selection struct {
	Predicates []Predicate
	OrderBy    []Order
	Limit      int
	Principal  string
}

type Store interface {
	SelectJobs(ctx context.Context, sel Selection) ([]Job, error)
	SelectGigs(ctx context.Context, sel Selection) ([]Gig, error)
	SelectFreelancers(ctx context.Context, sel Selection) ([]Freelancer, error)
	SelectMessages(ctx context.Context, sel Selection) ([]Message, error)
	SelectFAQs(ctx context.Context, sel Selection) ([]FAQ, error)
	Close() error
}
