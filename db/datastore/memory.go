package datastore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trustwork/discovery/logger"
)

// MemoryStore keeps all marketplace content in process memory. It backs
// tests and local development when no DATABASE_URL is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	logger      logger.Logger
	jobs        []Job
	gigs        []Gig
	freelancers []Freelancer
	messages    []Message
	faqs        []FAQ
}

func NewMemoryStore(logger logger.Logger) *MemoryStore {
	return &MemoryStore{logger: logger}
}

func (m *MemoryStore) SeedJobs(jobs []Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, jobs...)
}

func (m *MemoryStore) SeedGigs(gigs []Gig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gigs = append(m.gigs, gigs...)
}

func (m *MemoryStore) SeedFreelancers(freelancers []Freelancer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freelancers = append(m.freelancers, freelancers...)
}

func (m *MemoryStore) SeedMessages(messages []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages...)
}

func (m *MemoryStore) SeedFAQs(faqs []FAQ) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faqs = append(m.faqs, faqs...)
}

func (m *MemoryStore) SelectJobs(_ context.Context, sel Selection) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return selectRecords(m.jobs, jobFields, sel), nil
}

func (m *MemoryStore) SelectGigs(_ context.Context, sel Selection) ([]Gig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return selectRecords(m.gigs, gigFields, sel), nil
}

func (m *MemoryStore) SelectFreelancers(_ context.Context, sel Selection) ([]Freelancer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return selectRecords(m.freelancers, freelancerFields, sel), nil
}

// SelectMessages enforces participant visibility from Selection.Principal.
// Anonymous callers see nothing.
func (m *MemoryStore) SelectMessages(_ context.Context, sel Selection) ([]Message, error) {
	if sel.Principal == "" || sel.Principal == PrincipalAnonymous {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	visible := make([]Message, 0, len(m.messages))
	for _, msg := range m.messages {
		if slices.Contains(msg.Participants, sel.Principal) {
			visible = append(visible, msg)
		}
	}

	return selectRecords(visible, messageFields, sel), nil
}

func (m *MemoryStore) SelectFAQs(_ context.Context, sel Selection) ([]FAQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return selectRecords(m.faqs, faqFields, sel), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func jobFields(j Job) map[string]any {
	return map[string]any{
		"id": j.ID, "title": j.Title, "company": j.Company,
		"description": j.Description, "location": j.Location,
		"remote": j.Remote, "verified": j.Verified, "flagged": j.Flagged,
		"posted_at": j.PostedAt,
	}
}

func gigFields(g Gig) map[string]any {
	return map[string]any{
		"id": g.ID, "title": g.Title, "description": g.Description,
		"location": g.Location, "remote": g.Remote, "verified": g.Verified,
		"flagged": g.Flagged, "budget_min": g.BudgetMin, "budget_max": g.BudgetMax,
		"posted_at": g.PostedAt,
	}
}

func freelancerFields(f Freelancer) map[string]any {
	return map[string]any{
		"id": f.ID, "full_name": f.FullName, "title": f.Title,
		"skills": f.Skills, "province": f.Province, "remote": f.Remote,
		"verified": f.Verified, "flagged": f.Flagged, "rating": f.Rating,
		"jobs_completed": f.JobsCompleted, "role": f.Role,
	}
}

func messageFields(msg Message) map[string]any {
	return map[string]any{
		"id": msg.ID, "conversation_id": msg.ConversationID,
		"sender_id": msg.SenderID, "content": msg.Content,
		"flagged": msg.Flagged, "created_at": msg.CreatedAt,
	}
}

func faqFields(f FAQ) map[string]any {
	return map[string]any{
		"id": f.ID, "question": f.Question, "answer": f.Answer,
		"flagged": f.Flagged,
	}
}

func selectRecords[T any](records []T, fields func(T) map[string]any, sel Selection) []T {
	matched := make([]T, 0, len(records))
	for _, record := range records {
		if matchesAll(fields(record), sel.Predicates) {
			matched = append(matched, record)
		}
	}

	if len(sel.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return lessByOrder(fields(matched[i]), fields(matched[j]), sel.OrderBy)
		})
	}

	if sel.Limit > 0 && len(matched) > sel.Limit {
		matched = matched[:sel.Limit]
	}

	return matched
}

func matchesAll(fields map[string]any, predicates []Predicate) bool {
	for _, predicate := range predicates {
		if !matchesOne(fields, predicate) {
			return false
		}
	}
	return true
}

func matchesOne(fields map[string]any, predicate Predicate) bool {
	switch predicate.Op {
	case OpEq:
		return fields[predicate.Field] == predicate.Value

	case OpSubstr:
		needle, _ := predicate.Value.(string)
		return containsFold(fields[predicate.Field], needle)

	case OpAnyFieldSubstr:
		needle, _ := predicate.Value.(string)
		for _, field := range predicate.Fields {
			if containsFold(fields[field], needle) {
				return true
			}
		}
		return false

	case OpGte:
		return asFloat(fields[predicate.Field]) >= asFloat(predicate.Value)

	case OpLte:
		return asFloat(fields[predicate.Field]) <= asFloat(predicate.Value)

	case OpOverlaps:
		haystack, _ := fields[predicate.Field].([]string)
		needles, _ := predicate.Value.([]string)
		for _, needle := range needles {
			for _, element := range haystack {
				if strings.EqualFold(element, needle) {
					return true
				}
			}
		}
		return false
	}

	return false
}

// containsFold reports whether value (a string or a list of strings)
// contains needle, case-insensitively.
func containsFold(value any, needle string) bool {
	needle = strings.ToLower(needle)
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), needle)
	case []string:
		for _, element := range v {
			if strings.Contains(strings.ToLower(element), needle) {
				return true
			}
		}
	}
	return false
}

func lessByOrder(a, b map[string]any, orderBy []Order) bool {
	for _, order := range orderBy {
		c := compareValues(a[order.Field], b[order.Field])
		if c == 0 {
			continue
		}
		if order.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case bool:
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if av {
			return 1
		}
		return -1
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	default:
		af, bf := asFloat(a), asFloat(b)
		if af == bf {
			return 0
		}
		if af > bf {
			return 1
		}
		return -1
	}
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}
