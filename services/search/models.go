package search

import (
	"strings"

	"github.com/trustwork/discovery/db/datastore"
)

type Category string

const (
	CategoryAll         Category = "all"
	CategoryJobs        Category = "jobs"
	CategoryGigs        Category = "gigs"
	CategoryFreelancers Category = "freelancers"
	CategoryMessages    Category = "messages"
	CategoryFAQs        Category = "faqs"
)

// categoryPriority is the declared ordering between categories in responses.
var categoryPriority = []Category{
	CategoryJobs, CategoryGigs, CategoryFreelancers, CategoryMessages, CategoryFAQs,
}

func IsValidCategory(category Category) bool {
	switch category {
	case CategoryAll, CategoryJobs, CategoryGigs, CategoryFreelancers, CategoryMessages, CategoryFAQs:
		return true
	}
	return false
}

// Filters is the recognised filter set. Pointer fields distinguish "absent"
// from zero values.
type Filters struct {
	Location  string   `json:"location,omitempty"`
	Remote    *bool    `json:"remote,omitempty"`
	Verified  *bool    `json:"verified,omitempty"`
	BudgetMin *int     `json:"budget_min,omitempty"`
	BudgetMax *int     `json:"budget_max,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Skills    []string `json:"skills,omitempty"`
}

func (f Filters) Empty() bool {
	return f.Location == "" && f.Remote == nil && f.Verified == nil &&
		f.BudgetMin == nil && f.BudgetMax == nil && f.MinRating == nil &&
		len(f.Skills) == 0
}

// Query is one immutable search request.
type Query struct {
	RawQuery    string
	Categories  []Category
	Filters     Filters
	PrincipalID string
	Page        int
	PageSize    int
}

// SanitizedQuery is the normalised form of a Query. Errors is empty iff the
// query is valid.
type SanitizedQuery struct {
	Q        string
	Filters  Filters
	Page     int
	PageSize int
	Errors   []string
}

func (s SanitizedQuery) Valid() bool {
	return len(s.Errors) == 0
}

// Tokens splits the normalised query into match tokens. Multi-token queries
// require every token to match.
func (s SanitizedQuery) Tokens() []string {
	return strings.Fields(s.Q)
}

type JobResult struct {
	datastore.Job
	Snippet string `json:"snippet"`
}

type GigResult struct {
	datastore.Gig
	Snippet string `json:"snippet"`
}

type FreelancerResult struct {
	datastore.Freelancer
	Snippet string `json:"snippet"`
}

type MessageResult struct {
	datastore.Message
	Snippet string `json:"snippet"`
}

type FAQResult struct {
	datastore.FAQ
	Snippet string `json:"snippet"`

	matchCount int
}

// Results holds per-category result sequences in priority order.
type Results struct {
	Jobs        []JobResult        `json:"jobs"`
	Gigs        []GigResult        `json:"gigs"`
	Freelancers []FreelancerResult `json:"freelancers"`
	Messages    []MessageResult    `json:"messages"`
	FAQs        []FAQResult        `json:"faqs"`
}

func (r *Results) Total() int {
	return len(r.Jobs) + len(r.Gigs) + len(r.Freelancers) + len(r.Messages) + len(r.FAQs)
}

// Refs returns "category:id" pairs for every record, in category priority
// order. Saved-search fingerprinting diffs these between runs.
func (r *Results) Refs() []string {
	refs := make([]string, 0, r.Total())
	for _, job := range r.Jobs {
		refs = append(refs, string(CategoryJobs)+":"+job.ID)
	}
	for _, gig := range r.Gigs {
		refs = append(refs, string(CategoryGigs)+":"+gig.ID)
	}
	for _, freelancer := range r.Freelancers {
		refs = append(refs, string(CategoryFreelancers)+":"+freelancer.ID)
	}
	for _, message := range r.Messages {
		refs = append(refs, string(CategoryMessages)+":"+message.ID)
	}
	for _, faq := range r.FAQs {
		refs = append(refs, string(CategoryFAQs)+":"+faq.ID)
	}
	return refs
}

// AggregatedResults is the successful payload of one orchestrated search.
type AggregatedResults struct {
	Query        string `json:"query"`
	TotalResults int    `json:"total_results"`
	SearchTimeMs int64  `json:"search_time_ms"`
	Results
}
