package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/logger"
)

func newSeededStore() *datastore.MemoryStore {
	store := datastore.NewMemoryStore(logger.New())

	postedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	store.SeedJobs([]datastore.Job{
		{ID: "job-1", Title: "React Developer", Company: "Acme", Description: "Build React dashboards", Location: "Toronto", Verified: true, PostedAt: postedAt},
		{ID: "job-2", Title: "Frontend Engineer", Company: "React Labs", Description: "Work with react and TypeScript", Location: "Montreal", Remote: true, PostedAt: postedAt.Add(time.Hour)},
		{ID: "job-3", Title: "Backend Engineer", Company: "Acme", Description: "Go services", Location: "Toronto", PostedAt: postedAt},
		{ID: "job-4", Title: "React Lead", Company: "Spam Co", Description: "react react react", Flagged: true, PostedAt: postedAt},
	})
	store.SeedGigs([]datastore.Gig{
		{ID: "gig-1", Title: "React landing page", Description: "Small react site", BudgetMin: 500, BudgetMax: 1500, Verified: true, PostedAt: postedAt},
		{ID: "gig-2", Title: "Logo design", Description: "Vector logo", BudgetMin: 100, BudgetMax: 300, PostedAt: postedAt},
	})
	store.SeedFreelancers([]datastore.Freelancer{
		{ID: "fl-1", FullName: "Ada Wong", Title: "React specialist", Skills: []string{"React", "TypeScript"}, Province: "Ontario", Verified: true, Rating: 4.8, JobsCompleted: 40, Role: "freelancer"},
		{ID: "fl-2", FullName: "Sam Reyes", Title: "React developer", Skills: []string{"React"}, Province: "Quebec", Rating: 4.2, JobsCompleted: 12, Role: "freelancer"},
		{ID: "fl-3", FullName: "React Recruiter", Title: "Hiring react talent", Skills: []string{"React"}, Province: "Ontario", Rating: 5, JobsCompleted: 0, Role: "client"},
	})
	store.SeedMessages([]datastore.Message{
		{ID: "msg-1", ConversationID: "conv-1", SenderID: "user-2", Participants: []string{"user-1", "user-2"}, Content: "Can you take the react contract?", CreatedAt: postedAt},
		{ID: "msg-2", ConversationID: "conv-2", SenderID: "user-3", Participants: []string{"user-3", "user-4"}, Content: "react updates for the other team", CreatedAt: postedAt},
	})
	store.SeedFAQs([]datastore.FAQ{
		{ID: "faq-1", Question: "How do I list react skills?", Answer: "Add react to your profile skills."},
		{ID: "faq-2", Question: "How do payouts work?", Answer: "Payouts run weekly."},
	})

	return store
}

func newTestOrchestrator(store datastore.Store) *Orchestrator {
	return NewOrchestrator(logger.New(), store, NewMemoryLimiter())
}

func TestOrchestratorSearchAllCategories(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:    "react",
		PrincipalID: "user-1",
	})

	assert.Nil(response.Err)
	assert.NotNil(response.Aggregated)
	assert.NotEmpty(response.RequestID)

	results := response.Aggregated.Results
	assert.Len(results.Jobs, 2, "flagged and non-matching jobs are excluded")
	assert.Len(results.Gigs, 1)
	assert.Len(results.Freelancers, 2, "non-freelancer roles are excluded")
	assert.Len(results.Messages, 1, "only conversations the caller participates in")
	assert.Len(results.FAQs, 1)
	assert.Equal(7, response.Aggregated.TotalResults)

	assert.Equal("job-1", results.Jobs[0].ID, "verified job ranks above a newer unverified one")
	assert.Equal("job-2", results.Jobs[1].ID)
	assert.Equal("fl-1", results.Freelancers[0].ID, "verified freelancer ranks first")
	assert.Equal("msg-1", results.Messages[0].ID)

	assert.Contains(results.Jobs[0].Snippet, HighlightStart+"React"+HighlightEnd)
	assert.Contains(results.Messages[0].Snippet, HighlightStart+"react"+HighlightEnd)
	assert.Contains(results.FAQs[0].Snippet, HighlightStart+"react"+HighlightEnd)
}

func TestOrchestratorAnonymousSeesNoMessages(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{RawQuery: "react"})

	assert.Nil(response.Err)
	assert.Empty(response.Aggregated.Results.Messages)
	assert.NotEmpty(response.Aggregated.Results.Jobs, "public categories still match")
}

func TestOrchestratorSingleCategory(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:   "react",
		Categories: []Category{CategoryJobs},
	})

	assert.Nil(response.Err)
	assert.Len(response.Aggregated.Results.Jobs, 2)
	assert.Empty(response.Aggregated.Results.Gigs)
	assert.Empty(response.Aggregated.Results.Freelancers)
	assert.Empty(response.Aggregated.Results.FAQs)
	assert.Equal(2, response.Aggregated.TotalResults)
}

func TestOrchestratorFreelancerFilters(t *testing.T) {
	assert := require.New(t)

	minRating := 4.5
	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:   "react",
		Categories: []Category{CategoryFreelancers},
		Filters: Filters{
			Location:  "Ontario",
			MinRating: &minRating,
			Skills:    []string{"typescript"},
		},
	})

	assert.Nil(response.Err)
	results := response.Aggregated.Results.Freelancers
	assert.Len(results, 1)
	assert.Equal("fl-1", results[0].ID)
}

func TestOrchestratorGigBudgetFilter(t *testing.T) {
	assert := require.New(t)

	budgetMin := 400
	budgetMax := 2000
	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:   "",
		Categories: []Category{CategoryAll},
		Filters:    Filters{BudgetMin: &budgetMin, BudgetMax: &budgetMax},
	})

	assert.Nil(response.Err)
	gigs := response.Aggregated.Results.Gigs
	assert.Len(gigs, 1)
	assert.Equal("gig-1", gigs[0].ID)
}

func TestOrchestratorInvalidQuery(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(newSeededStore())
	response := orchestrator.Run(context.Background(), Query{RawQuery: "'; drop table jobs; --"})

	assert.NotNil(response.Err)
	assert.Equal(CodeInvalidQuery, response.Err.Code)
	assert.Nil(response.Aggregated)
	assert.NotEmpty(response.Err.Details["reasons"])
}

func TestOrchestratorRateLimited(t *testing.T) {
	assert := require.New(t)

	resetAt := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	orchestrator := NewOrchestrator(logger.New(), newSeededStore(), limiterFunc(func(context.Context, string) (Decision, error) {
		return Decision{Allowed: false, ResetAt: resetAt}, nil
	}))

	response := orchestrator.Run(context.Background(), Query{RawQuery: "react"})

	assert.NotNil(response.Err)
	assert.Equal(CodeRateLimitExceeded, response.Err.Code)
	assert.Equal(resetAt, response.Err.Details["reset_at"])
	assert.Equal(0, response.RateLimitRemaining)
}

func TestOrchestratorLimiterFailureAllowsRequest(t *testing.T) {
	assert := require.New(t)

	orchestrator := NewOrchestrator(logger.New(), newSeededStore(), limiterFunc(func(context.Context, string) (Decision, error) {
		return Decision{}, errors.New("redis unreachable")
	}))

	response := orchestrator.Run(context.Background(), Query{RawQuery: "react"})

	assert.Nil(response.Err, "an unreachable limiter never blocks search")
	assert.NotNil(response.Aggregated)
	assert.Equal(maxAnonymousPerWindow, response.RateLimitRemaining)
}

func TestOrchestratorCategoryFailureDegrades(t *testing.T) {
	assert := require.New(t)

	store := &faultyStore{Store: newSeededStore(), failJobs: true}
	orchestrator := newTestOrchestrator(store)

	response := orchestrator.Run(context.Background(), Query{RawQuery: "react", PrincipalID: "user-1"})

	assert.Nil(response.Err, "one broken category never fails the aggregate")
	assert.Empty(response.Aggregated.Results.Jobs)
	assert.NotEmpty(response.Aggregated.Results.Gigs)
	assert.NotEmpty(response.Aggregated.Results.Freelancers)
}

func TestOrchestratorPagination(t *testing.T) {
	assert := require.New(t)

	store := datastore.NewMemoryStore(logger.New())
	jobs := make([]datastore.Job, 0, 25)
	for i := 0; i < 25; i++ {
		jobs = append(jobs, datastore.Job{
			ID:          "job-" + string(rune('a'+i)),
			Title:       "react role",
			Description: "react work",
			PostedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}
	store.SeedJobs(jobs)

	orchestrator := newTestOrchestrator(store)
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:   "react",
		Categories: []Category{CategoryJobs},
		Page:       2,
		PageSize:   10,
	})

	assert.Nil(response.Err)
	assert.Equal(25, response.Aggregated.TotalResults, "total counts pre-pagination matches")
	assert.Len(response.Aggregated.Results.Jobs, 10)

	response = orchestrator.Run(context.Background(), Query{
		RawQuery:   "react",
		Categories: []Category{CategoryJobs},
		Page:       4,
		PageSize:   10,
	})
	assert.Nil(response.Err)
	assert.Empty(response.Aggregated.Results.Jobs, "pages past the end are empty, not errors")
}

func TestFAQRankingByMatchCount(t *testing.T) {
	assert := require.New(t)

	store := datastore.NewMemoryStore(logger.New())
	store.SeedFAQs([]datastore.FAQ{
		{ID: "faq-1", Question: "What is an invoice?", Answer: "An invoice bills a client."},
		{ID: "faq-2", Question: "Invoice and invoice templates", Answer: "Manage every invoice from billing."},
	})

	orchestrator := newTestOrchestrator(store)
	response := orchestrator.Run(context.Background(), Query{
		RawQuery:   "invoice",
		Categories: []Category{CategoryFAQs},
	})

	assert.Nil(response.Err)
	faqs := response.Aggregated.Results.FAQs
	assert.Len(faqs, 2)
	assert.Equal("faq-2", faqs[0].ID, "more occurrences rank first")
	assert.Equal("faq-1", faqs[1].ID)
}

// limiterFunc adapts a bare function to the Limiter interface.
type limiterFunc func(ctx context.Context, principalID string) (Decision, error)

func (f limiterFunc) Check(ctx context.Context, principalID string) (Decision, error) {
	return f(ctx, principalID)
}

// faultyStore fails selected categories and delegates the rest.
type faultyStore struct {
	datastore.Store
	failJobs bool
}

func (s *faultyStore) SelectJobs(ctx context.Context, sel datastore.Selection) ([]datastore.Job, error) {
	if s.failJobs {
		return nil, errors.New("jobs table unavailable")
	}
	return s.Store.SelectJobs(ctx, sel)
}

// slowStore blocks selected categories until their context expires.
type slowStore struct {
	datastore.Store
	slowJobs bool
	slowAll  bool
}

func (s *slowStore) wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *slowStore) SelectJobs(ctx context.Context, sel datastore.Selection) ([]datastore.Job, error) {
	if s.slowJobs || s.slowAll {
		return nil, s.wait(ctx)
	}
	return s.Store.SelectJobs(ctx, sel)
}

func (s *slowStore) SelectGigs(ctx context.Context, sel datastore.Selection) ([]datastore.Gig, error) {
	if s.slowAll {
		return nil, s.wait(ctx)
	}
	return s.Store.SelectGigs(ctx, sel)
}

func (s *slowStore) SelectFreelancers(ctx context.Context, sel datastore.Selection) ([]datastore.Freelancer, error) {
	if s.slowAll {
		return nil, s.wait(ctx)
	}
	return s.Store.SelectFreelancers(ctx, sel)
}

func (s *slowStore) SelectMessages(ctx context.Context, sel datastore.Selection) ([]datastore.Message, error) {
	if s.slowAll {
		return nil, s.wait(ctx)
	}
	return s.Store.SelectMessages(ctx, sel)
}

func (s *slowStore) SelectFAQs(ctx context.Context, sel datastore.Selection) ([]datastore.FAQ, error) {
	if s.slowAll {
		return nil, s.wait(ctx)
	}
	return s.Store.SelectFAQs(ctx, sel)
}

func TestOrchestratorSlowCategoryDegradesToEmpty(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(&slowStore{Store: newSeededStore(), slowJobs: true})
	orchestrator.perCategoryTimeout = 30 * time.Millisecond

	response := orchestrator.Run(context.Background(), Query{RawQuery: "react", PrincipalID: "user-1"})

	assert.Nil(response.Err, "one slow category never fails the aggregate")
	assert.Empty(response.Aggregated.Results.Jobs, "the slow category times out to empty")
	assert.NotEmpty(response.Aggregated.Results.Gigs)
	assert.NotEmpty(response.Aggregated.Results.Freelancers)
	assert.NotEmpty(response.Aggregated.Results.FAQs)
}

func TestOrchestratorTotalDeadlineReturnsTimeout(t *testing.T) {
	assert := require.New(t)

	orchestrator := newTestOrchestrator(&slowStore{Store: newSeededStore(), slowAll: true})
	orchestrator.totalTimeout = 50 * time.Millisecond

	response := orchestrator.Run(context.Background(), Query{RawQuery: "react", PrincipalID: "user-1"})

	assert.NotNil(response.Err)
	assert.Equal(CodeSearchTimeout, response.Err.Code)
	assert.Nil(response.Aggregated, "partial results are discarded on a total timeout")
}

func TestEnabledCategories(t *testing.T) {
	assert := require.New(t)

	assert.Len(enabledCategories(nil), 5, "empty enables everything")
	assert.Len(enabledCategories([]Category{CategoryAll, CategoryJobs}), 5, "all wins over specific names")

	enabled := enabledCategories([]Category{CategoryJobs, CategoryFAQs})
	assert.True(enabled[CategoryJobs])
	assert.True(enabled[CategoryFAQs])
	assert.False(enabled[CategoryGigs])
	assert.False(enabled[CategoryMessages])
}
