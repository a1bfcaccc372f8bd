package savedsearch

import (
	"errors"
	"time"

	"github.com/trustwork/discovery/services/search"
)

type Frequency string

const (
	FrequencyOff    Frequency = "off"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Interval returns how long must pass since the last run before a saved
// search is due again, or 0 for off.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Type is the single category a saved search re-runs against.
type Type string

const (
	TypeJobs        Type = "jobs"
	TypeGigs        Type = "gigs"
	TypeFreelancers Type = "freelancers"
)

func IsValidType(searchType Type) bool {
	switch searchType {
	case TypeJobs, TypeGigs, TypeFreelancers:
		return true
	}
	return false
}

const maxNameLength = 80

var (
	ErrNotFound     = errors.New("saved search not found")
	ErrNotOwner     = errors.New("saved search belongs to another owner")
	ErrInvalidInput = errors.New("invalid saved search input")
)

// SavedSearch is a named query an owner re-runs, optionally with background
// alerts. LastRunAt, LastResultFingerprint and LastResultRefs mutate only
// from the alert engine via RecordRun.
type SavedSearch struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Name           string         `json:"name"`
	SearchType     Type           `json:"search_type"`
	RawQuery       string         `json:"raw_query"`
	Filters        search.Filters `json:"filters"`
	AlertEnabled   bool           `json:"alert_enabled"`
	AlertFrequency Frequency      `json:"alert_frequency"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	LastRunAt             *time.Time `json:"last_run_at"`
	LastResultFingerprint string     `json:"last_result_fingerprint"`
	// LastResultRefs is the previous run's "category:id" set, persisted
	// beside the fingerprint so deltas can be computed.
	LastResultRefs []string `json:"last_result_refs,omitempty"`
}

// Input carries the caller-settable fields on create.
type Input struct {
	Name           string         `json:"name"`
	SearchType     Type           `json:"search_type"`
	RawQuery       string         `json:"raw_query"`
	Filters        search.Filters `json:"filters"`
	AlertEnabled   bool           `json:"alert_enabled"`
	AlertFrequency Frequency      `json:"alert_frequency"`
}

// Patch updates a saved search; nil fields are left unchanged. SearchType
// and RawQuery are immutable after creation.
type Patch struct {
	Name           *string         `json:"name"`
	Filters        *search.Filters `json:"filters"`
	AlertEnabled   *bool           `json:"alert_enabled"`
	AlertFrequency *Frequency      `json:"alert_frequency"`
}
