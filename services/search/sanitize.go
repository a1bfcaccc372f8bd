package search

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxQueryLength  = 200
	maxSkillLength  = 40
	defaultPageSize = 20
	maxPageSize     = 50
)

// injectionPattern flags inputs that look like structured-query payloads.
// Matching runs before disallowed characters are removed, otherwise the
// stripped text could no longer be recognised.
var injectionPattern = regexp.MustCompile(`(?i)--|;\s*(drop|delete|update|insert)\b|<script|javascript:|on\w+\s*=`)

// allowedPunctuation is the non-alphanumeric character set kept in queries.
const allowedPunctuation = " .,&'()+-/:"

// Sanitize normalises and validates a raw query. It is pure: all failures
// are reported in the returned value, never panicked or logged.
func Sanitize(query Query) SanitizedQuery {
	sanitized := SanitizedQuery{
		Filters:  sanitizeFilters(query.Filters),
		Page:     query.Page,
		PageSize: query.PageSize,
	}

	if sanitized.Page < 1 {
		sanitized.Page = 1
	}
	if sanitized.PageSize < 1 {
		sanitized.PageSize = defaultPageSize
	}
	if sanitized.PageSize > maxPageSize {
		sanitized.PageSize = maxPageSize
	}

	text := norm.NFC.String(strings.TrimSpace(query.RawQuery))
	text = stripControl(text)
	text = collapseWhitespace(text)

	if utf8.RuneCountInString(text) > maxQueryLength {
		sanitized.Errors = append(sanitized.Errors,
			fmt.Sprintf("query exceeds %d characters", maxQueryLength))
		return sanitized
	}

	if injectionPattern.MatchString(text) {
		sanitized.Errors = append(sanitized.Errors, "query contains a disallowed pattern")
		return sanitized
	}

	text = removeDisallowed(text)
	text = strings.ToLower(collapseWhitespace(text))
	sanitized.Q = text

	if text == "" && !emptyQueryAllowed(query.Categories, sanitized.Filters) {
		sanitized.Errors = append(sanitized.Errors, "query is empty")
	}

	return sanitized
}

// emptyQueryAllowed permits a blank query only for filter-driven browsing
// across all categories.
func emptyQueryAllowed(categories []Category, filters Filters) bool {
	if filters.Empty() {
		return false
	}
	for _, category := range categories {
		if category == CategoryAll {
			return true
		}
	}
	return false
}

func sanitizeFilters(filters Filters) Filters {
	sanitized := Filters{
		Location: strings.TrimSpace(filters.Location),
	}

	sanitized.Remote = filters.Remote
	sanitized.Verified = filters.Verified

	if filters.BudgetMin != nil {
		budgetMin := max(*filters.BudgetMin, 0)
		sanitized.BudgetMin = &budgetMin
	}
	if filters.BudgetMax != nil {
		budgetMax := *filters.BudgetMax
		if sanitized.BudgetMin != nil && budgetMax < *sanitized.BudgetMin {
			budgetMax = *sanitized.BudgetMin
		}
		if budgetMax < 0 {
			budgetMax = 0
		}
		sanitized.BudgetMax = &budgetMax
	}

	if filters.MinRating != nil {
		minRating := min(max(*filters.MinRating, 0), 5)
		sanitized.MinRating = &minRating
	}

	seen := make(map[string]bool, len(filters.Skills))
	for _, skill := range filters.Skills {
		skill = collapseWhitespace(stripControl(strings.TrimSpace(skill)))
		if skill == "" || utf8.RuneCountInString(skill) > maxSkillLength {
			continue
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		seen[key] = true
		sanitized.Skills = append(sanitized.Skills, skill)
	}

	return sanitized
}

// stripControl drops C0/C1 control characters, mapping newlines to spaces.
func stripControl(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r == '\n' {
			builder.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// removeDisallowed keeps Unicode letters, digits and a small punctuation
// set; everything else is dropped.
func removeDisallowed(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunctuation, r) {
			builder.WriteRune(r)
		}
	}
	return strings.TrimSpace(builder.String())
}
