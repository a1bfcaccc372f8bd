package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustwork/discovery/logger"
)

// PostgresStore reads marketplace content from Postgres. Predicates are
// compiled to parameterised SQL; field names are checked against per-table
// column allowlists so no caller-supplied text ever reaches the query.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresStore(ctx context.Context, logger logger.Logger, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

var (
	jobColumns = columnSet("id", "title", "company", "description", "location",
		"remote", "verified", "flagged", "posted_at")
	gigColumns = columnSet("id", "title", "description", "location", "remote",
		"verified", "flagged", "budget_min", "budget_max", "posted_at")
	freelancerColumns = columnSet("id", "full_name", "title", "skills",
		"province", "remote", "verified", "flagged", "rating", "jobs_completed", "role")
	messageColumns = columnSet("id", "conversation_id", "sender_id", "content",
		"flagged", "created_at")
	faqColumns = columnSet("id", "question", "answer", "flagged")
)

func columnSet(columns ...string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, column := range columns {
		set[column] = true
	}
	return set
}

func (p *PostgresStore) SelectJobs(ctx context.Context, sel Selection) ([]Job, error) {
	clauses, args, err := compileSelection(sel, jobColumns, "")
	if err != nil {
		return nil, err
	}

	query := "SELECT id, title, company, description, location, remote, verified, flagged, posted_at FROM jobs" + clauses
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.Location,
			&j.Remote, &j.Verified, &j.Flagged, &j.PostedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}

func (p *PostgresStore) SelectGigs(ctx context.Context, sel Selection) ([]Gig, error) {
	clauses, args, err := compileSelection(sel, gigColumns, "")
	if err != nil {
		return nil, err
	}

	query := "SELECT id, title, description, location, remote, verified, flagged, budget_min, budget_max, posted_at FROM gigs" + clauses
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gigs: %w", err)
	}
	defer rows.Close()

	var gigs []Gig
	for rows.Next() {
		var g Gig
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.Location,
			&g.Remote, &g.Verified, &g.Flagged, &g.BudgetMin, &g.BudgetMax, &g.PostedAt); err != nil {
			return nil, fmt.Errorf("scan gig: %w", err)
		}
		gigs = append(gigs, g)
	}

	return gigs, rows.Err()
}

func (p *PostgresStore) SelectFreelancers(ctx context.Context, sel Selection) ([]Freelancer, error) {
	clauses, args, err := compileSelection(sel, freelancerColumns, "")
	if err != nil {
		return nil, err
	}

	query := "SELECT id, full_name, title, skills, province, remote, verified, flagged, rating, jobs_completed, role FROM freelancers" + clauses
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query freelancers: %w", err)
	}
	defer rows.Close()

	var freelancers []Freelancer
	for rows.Next() {
		var f Freelancer
		if err := rows.Scan(&f.ID, &f.FullName, &f.Title, &f.Skills, &f.Province,
			&f.Remote, &f.Verified, &f.Flagged, &f.Rating, &f.JobsCompleted, &f.Role); err != nil {
			return nil, fmt.Errorf("scan freelancer: %w", err)
		}
		freelancers = append(freelancers, f)
	}

	return freelancers, rows.Err()
}

// SelectMessages restricts rows to conversations the principal participates
// in. Anonymous callers see nothing.
func (p *PostgresStore) SelectMessages(ctx context.Context, sel Selection) ([]Message, error) {
	if sel.Principal == "" || sel.Principal == PrincipalAnonymous {
		return nil, nil
	}

	clauses, args, err := compileSelection(sel, messageColumns, "participants")
	if err != nil {
		return nil, err
	}

	query := "SELECT id, conversation_id, sender_id, participants, content, flagged, created_at FROM messages" + clauses
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Participants,
			&m.Content, &m.Flagged, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (p *PostgresStore) SelectFAQs(ctx context.Context, sel Selection) ([]FAQ, error) {
	clauses, args, err := compileSelection(sel, faqColumns, "")
	if err != nil {
		return nil, err
	}

	query := "SELECT id, question, answer, flagged FROM faqs" + clauses
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faqs: %w", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var f FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.Flagged); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}

	return faqs, rows.Err()
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// compileSelection turns structured predicates into WHERE/ORDER BY/LIMIT
// clauses with positional arguments. participantColumn, when set, adds a
// participation check against the selection principal.
func compileSelection(sel Selection, columns map[string]bool, participantColumn string) (string, []any, error) {
	var conditions []string
	var args []any

	bind := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, predicate := range sel.Predicates {
		switch predicate.Op {
		case OpEq, OpGte, OpLte, OpSubstr, OpOverlaps:
			if !columns[predicate.Field] {
				return "", nil, fmt.Errorf("unknown column in predicate: %s", predicate.Field)
			}
		case OpAnyFieldSubstr:
			for _, field := range predicate.Fields {
				if !columns[field] {
					return "", nil, fmt.Errorf("unknown column in predicate: %s", field)
				}
			}
		default:
			return "", nil, fmt.Errorf("unknown predicate op: %s", predicate.Op)
		}

		switch predicate.Op {
		case OpEq:
			conditions = append(conditions, fmt.Sprintf("%s = %s", predicate.Field, bind(predicate.Value)))
		case OpGte:
			conditions = append(conditions, fmt.Sprintf("%s >= %s", predicate.Field, bind(predicate.Value)))
		case OpLte:
			conditions = append(conditions, fmt.Sprintf("%s <= %s", predicate.Field, bind(predicate.Value)))
		case OpSubstr:
			conditions = append(conditions, fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", predicate.Field, bind(predicate.Value)))
		case OpOverlaps:
			conditions = append(conditions, fmt.Sprintf("%s && %s", predicate.Field, bind(predicate.Value)))
		case OpAnyFieldSubstr:
			placeholder := bind(predicate.Value)
			fieldConditions := make([]string, 0, len(predicate.Fields))
			for _, field := range predicate.Fields {
				if field == "skills" {
					// list column: any element contains the token
					fieldConditions = append(fieldConditions,
						fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS skill WHERE skill ILIKE '%%' || %s || '%%')", field, placeholder))
					continue
				}
				fieldConditions = append(fieldConditions, fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", field, placeholder))
			}
			conditions = append(conditions, "("+strings.Join(fieldConditions, " OR ")+")")
		}
	}

	if participantColumn != "" {
		conditions = append(conditions, fmt.Sprintf("%s = ANY(%s)", bind(sel.Principal), participantColumn))
	}

	var clauses strings.Builder
	if len(conditions) > 0 {
		clauses.WriteString(" WHERE ")
		clauses.WriteString(strings.Join(conditions, " AND "))
	}

	if len(sel.OrderBy) > 0 {
		orders := make([]string, 0, len(sel.OrderBy))
		for _, order := range sel.OrderBy {
			if !columns[order.Field] {
				return "", nil, fmt.Errorf("unknown column in order by: %s", order.Field)
			}
			direction := "ASC"
			if order.Desc {
				direction = "DESC"
			}
			orders = append(orders, fmt.Sprintf("%s %s", order.Field, direction))
		}
		clauses.WriteString(" ORDER BY ")
		clauses.WriteString(strings.Join(orders, ", "))
	}

	if sel.Limit > 0 {
		clauses.WriteString(fmt.Sprintf(" LIMIT %d", sel.Limit))
	}

	return clauses.String(), args, nil
}
