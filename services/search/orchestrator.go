package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/logger"
)

const (
	perCategoryTimeout = 2 * time.Second
	totalTimeout       = 5 * time.Second
)

// Response is the outcome of one orchestrated search. Exactly one of
// Aggregated and Err is set.
type Response struct {
	RequestID          string
	Timestamp          time.Time
	RateLimitRemaining int
	Aggregated         *AggregatedResults
	Err                *Error
}

// Orchestrator runs the full pipeline: sanitise, rate-limit, fan out the
// enabled category searchers concurrently, aggregate and decorate.
type Orchestrator struct {
	logger  logger.Logger
	limiter Limiter

	jobs        *jobsSearcher
	gigs        *gigsSearcher
	freelancers *freelancersSearcher
	messages    *messagesSearcher
	faqs        *faqsSearcher

	perCategoryTimeout time.Duration
	totalTimeout       time.Duration
	now                func() time.Time
}

func NewOrchestrator(logger logger.Logger, store datastore.Store, limiter Limiter) *Orchestrator {
	return &Orchestrator{
		logger:             logger,
		limiter:            limiter,
		jobs:               &jobsSearcher{store: store},
		gigs:               &gigsSearcher{store: store},
		freelancers:        &freelancersSearcher{store: store},
		messages:           &messagesSearcher{store: store},
		faqs:               &faqsSearcher{store: store},
		perCategoryTimeout: perCategoryTimeout,
		totalTimeout:       totalTimeout,
		now:                time.Now,
	}
}

func (o *Orchestrator) Run(ctx context.Context, query Query) Response {
	start := o.now()
	response := Response{
		RequestID: uuid.NewString(),
		Timestamp: start,
	}

	principalID := query.PrincipalID
	if principalID == "" {
		principalID = datastore.PrincipalAnonymous
	}

	sanitized := Sanitize(query)
	if !sanitized.Valid() {
		response.Err = &Error{
			Code:    CodeInvalidQuery,
			Message: "the search query could not be accepted",
			Details: map[string]any{"reasons": sanitized.Errors},
		}
		return response
	}

	decision, err := o.limiter.Check(ctx, principalID)
	if err != nil {
		// The limiter being unreachable should not take search down.
		o.logger.Error("rate limit check failed, allowing request", "err", err.Error(), "request_id", response.RequestID)
		decision = Decision{Allowed: true, Remaining: limitFor(principalID)}
	}
	response.RateLimitRemaining = decision.Remaining
	if !decision.Allowed {
		response.Err = &Error{
			Code:    CodeRateLimitExceeded,
			Message: "too many searches, please retry later",
			Details: map[string]any{"reset_at": decision.ResetAt},
		}
		return response
	}

	enabled := enabledCategories(query.Categories)

	searchCtx, cancel := context.WithTimeout(ctx, o.totalTimeout)
	defer cancel()

	results := o.fanOut(searchCtx, enabled, sanitized, principalID)

	if searchCtx.Err() != nil {
		response.Err = &Error{
			Code:    CodeSearchTimeout,
			Message: "the search took too long, please retry",
		}
		return response
	}

	total := results.Total()
	paginate(&results, sanitized.Page, sanitized.PageSize)
	attachSnippets(&results, sanitized.Q)

	response.Aggregated = &AggregatedResults{
		Query:        sanitized.Q,
		TotalResults: total,
		SearchTimeMs: o.now().Sub(start).Milliseconds(),
		Results:      results,
	}
	return response
}

// fanOut runs every enabled searcher concurrently. A failed or timed-out
// category degrades to empty and never fails the aggregate.
func (o *Orchestrator) fanOut(ctx context.Context, enabled map[Category]bool, sanitized SanitizedQuery, principalID string) Results {
	results := Results{
		Jobs:        []JobResult{},
		Gigs:        []GigResult{},
		Freelancers: []FreelancerResult{},
		Messages:    []MessageResult{},
		FAQs:        []FAQResult{},
	}

	group, groupCtx := errgroup.WithContext(ctx)

	runCategory(group, groupCtx, o, enabled, CategoryJobs, o.jobs.Search, sanitized, principalID, &results.Jobs)
	runCategory(group, groupCtx, o, enabled, CategoryGigs, o.gigs.Search, sanitized, principalID, &results.Gigs)
	runCategory(group, groupCtx, o, enabled, CategoryFreelancers, o.freelancers.Search, sanitized, principalID, &results.Freelancers)
	runCategory(group, groupCtx, o, enabled, CategoryMessages, o.messages.Search, sanitized, principalID, &results.Messages)
	runCategory(group, groupCtx, o, enabled, CategoryFAQs, o.faqs.Search, sanitized, principalID, &results.FAQs)

	_ = group.Wait()
	return results
}

func runCategory[T any](group *errgroup.Group, ctx context.Context, o *Orchestrator, enabled map[Category]bool,
	category Category, searchFunc func(context.Context, SanitizedQuery, string) ([]T, error),
	sanitized SanitizedQuery, principalID string, out *[]T) {

	if !enabled[category] {
		return
	}

	group.Go(func() error {
		categoryCtx, cancel := context.WithTimeout(ctx, o.perCategoryTimeout)
		defer cancel()

		records, err := searchFunc(categoryCtx, sanitized, principalID)
		if err != nil {
			o.logger.Error("category search failed", "category", string(category), "err", err.Error())
			return nil
		}
		if len(records) > 0 {
			*out = records
		}
		return nil
	})
}

// enabledCategories resolves the requested set; an empty list or "all"
// enables every category. Unknown names are ignored here because the API
// layer rejects them earlier.
func enabledCategories(categories []Category) map[Category]bool {
	enabled := make(map[Category]bool, len(categoryPriority))

	all := len(categories) == 0
	for _, category := range categories {
		if category == CategoryAll {
			all = true
		}
	}
	if all {
		for _, category := range categoryPriority {
			enabled[category] = true
		}
		return enabled
	}

	for _, category := range categories {
		if IsValidCategory(category) {
			enabled[category] = true
		}
	}
	return enabled
}

func paginate(results *Results, page, pageSize int) {
	results.Jobs = pageSlice(results.Jobs, page, pageSize)
	results.Gigs = pageSlice(results.Gigs, page, pageSize)
	results.Freelancers = pageSlice(results.Freelancers, page, pageSize)
	results.Messages = pageSlice(results.Messages, page, pageSize)
	results.FAQs = pageSlice(results.FAQs, page, pageSize)
}

func pageSlice[T any](records []T, page, pageSize int) []T {
	offset := (page - 1) * pageSize
	if offset >= len(records) {
		return records[:0]
	}
	end := min(offset+pageSize, len(records))
	return records[offset:end]
}

// attachSnippets decorates every record with an excerpt of its principal
// descriptive field.
func attachSnippets(results *Results, q string) {
	for i := range results.Jobs {
		results.Jobs[i].Snippet = Snippet(results.Jobs[i].Description, q, snippetMaxLen)
	}
	for i := range results.Gigs {
		results.Gigs[i].Snippet = Snippet(results.Gigs[i].Description, q, snippetMaxLen)
	}
	for i := range results.Freelancers {
		results.Freelancers[i].Snippet = Snippet(results.Freelancers[i].Title, q, snippetMaxLen)
	}
	for i := range results.Messages {
		results.Messages[i].Snippet = Snippet(results.Messages[i].Content, q, snippetMaxLen)
	}
	for i := range results.FAQs {
		results.FAQs[i].Snippet = Snippet(results.FAQs[i].Answer, q, snippetMaxLen)
	}
}
