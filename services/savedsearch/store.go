package savedsearch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/trustwork/discovery/db/kvdb"
	"github.com/trustwork/discovery/logger"
)

// Store persists saved searches in the key-value database, keyed by
// "<ownerID>/<id>" so one prefix scan lists an owner's searches.
type Store struct {
	logger logger.Logger
	kv     kvdb.DB
	now    func() time.Time
}

func NewStore(logger logger.Logger, kv kvdb.DB) *Store {
	return &Store{logger: logger, kv: kv, now: time.Now}
}

func (s *Store) Create(ownerID string, input Input) (*SavedSearch, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
	}
	if !IsValidType(input.SearchType) {
		return nil, fmt.Errorf("%w: unknown search type %q", ErrInvalidInput, input.SearchType)
	}

	// Single-category searches reject empty queries, so a saved search
	// without one could never re-run.
	rawQuery := strings.TrimSpace(input.RawQuery)
	if rawQuery == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	frequency := input.AlertFrequency
	if frequency == "" {
		frequency = FrequencyOff
	}
	if frequency != FrequencyOff && frequency != FrequencyDaily && frequency != FrequencyWeekly {
		return nil, fmt.Errorf("%w: unknown alert frequency %q", ErrInvalidInput, input.AlertFrequency)
	}
	if input.AlertEnabled && frequency == FrequencyOff {
		return nil, fmt.Errorf("%w: alerts need a frequency other than off", ErrInvalidInput)
	}

	now := s.now()
	savedSearch := &SavedSearch{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Name:           name,
		SearchType:     input.SearchType,
		RawQuery:       rawQuery,
		Filters:        input.Filters,
		AlertEnabled:   input.AlertEnabled,
		AlertFrequency: frequency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.put(savedSearch); err != nil {
		return nil, err
	}
	return savedSearch, nil
}

// List returns the owner's saved searches, newest update first, optionally
// restricted to one search type.
func (s *Store) List(ownerID string, searchType *Type) ([]SavedSearch, error) {
	values, err := s.kv.List(kvdb.SavedSearchesBucket, ownerID+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}

	savedSearches := make([]SavedSearch, 0, len(values))
	for key, value := range values {
		var savedSearch SavedSearch
		if err := json.Unmarshal([]byte(value), &savedSearch); err != nil {
			s.logger.Error("failed to decode saved search, skipping", "key", key, "err", err.Error())
			continue
		}
		if searchType != nil && savedSearch.SearchType != *searchType {
			continue
		}
		savedSearches = append(savedSearches, savedSearch)
	}

	sort.Slice(savedSearches, func(i, j int) bool {
		return savedSearches[i].UpdatedAt.After(savedSearches[j].UpdatedAt)
	})

	return savedSearches, nil
}

// ListAlertEnabled returns every saved search with alerts on, across all
// owners. Only the alert engine calls this.
func (s *Store) ListAlertEnabled() ([]SavedSearch, error) {
	values, err := s.kv.List(kvdb.SavedSearchesBucket, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}

	var savedSearches []SavedSearch
	for key, value := range values {
		var savedSearch SavedSearch
		if err := json.Unmarshal([]byte(value), &savedSearch); err != nil {
			s.logger.Error("failed to decode saved search, skipping", "key", key, "err", err.Error())
			continue
		}
		if savedSearch.AlertEnabled {
			savedSearches = append(savedSearches, savedSearch)
		}
	}

	return savedSearches, nil
}

func (s *Store) Get(ownerID, id string) (*SavedSearch, error) {
	return s.get(ownerID, id)
}

func (s *Store) Update(ownerID, id string, patch Patch) (*SavedSearch, error) {
	savedSearch, err := s.get(ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
		}
		savedSearch.Name = name
	}
	if patch.Filters != nil {
		savedSearch.Filters = *patch.Filters
	}
	if patch.AlertFrequency != nil {
		frequency := *patch.AlertFrequency
		if frequency != FrequencyOff && frequency != FrequencyDaily && frequency != FrequencyWeekly {
			return nil, fmt.Errorf("%w: unknown alert frequency %q", ErrInvalidInput, frequency)
		}
		savedSearch.AlertFrequency = frequency
	}
	if patch.AlertEnabled != nil {
		savedSearch.AlertEnabled = *patch.AlertEnabled
	}
	if savedSearch.AlertEnabled && savedSearch.AlertFrequency == FrequencyOff {
		return nil, fmt.Errorf("%w: alerts need a frequency other than off", ErrInvalidInput)
	}

	savedSearch.UpdatedAt = s.now()
	if err := s.put(savedSearch); err != nil {
		return nil, err
	}
	return savedSearch, nil
}

func (s *Store) Delete(ownerID, id string) error {
	if _, err := s.get(ownerID, id); err != nil {
		return err
	}
	return s.kv.Delete(kvdb.SavedSearchesBucket, ownerID+"/"+id)
}

// RecordRun stores the outcome of one alert-engine run. It deliberately does
// not touch UpdatedAt, which tracks owner edits only.
func (s *Store) RecordRun(ownerID, id string, fingerprint string, refs []string) error {
	savedSearch, err := s.get(ownerID, id)
	if err != nil {
		return err
	}

	now := s.now()
	savedSearch.LastRunAt = &now
	savedSearch.LastResultFingerprint = fingerprint
	savedSearch.LastResultRefs = refs

	return s.put(savedSearch)
}

// DisableAlerts turns alerting off after a fatal alert-engine failure.
func (s *Store) DisableAlerts(ownerID, id string) error {
	savedSearch, err := s.get(ownerID, id)
	if err != nil {
		return err
	}

	savedSearch.AlertEnabled = false
	return s.put(savedSearch)
}

func (s *Store) get(ownerID, id string) (*SavedSearch, error) {
	if ownerID == "" || id == "" {
		return nil, ErrNotFound
	}

	value, err := s.kv.Get(kvdb.SavedSearchesBucket, ownerID+"/"+id)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load saved search: %w", err)
	}

	var savedSearch SavedSearch
	if err := json.Unmarshal([]byte(value), &savedSearch); err != nil {
		return nil, fmt.Errorf("failed to decode saved search: %w", err)
	}
	if savedSearch.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	return &savedSearch, nil
}

func (s *Store) put(savedSearch *SavedSearch) error {
	encoded, err := json.Marshal(savedSearch)
	if err != nil {
		return fmt.Errorf("failed to encode saved search: %w", err)
	}

	key := savedSearch.OwnerID + "/" + savedSearch.ID
	if err := s.kv.Set(kvdb.SavedSearchesBucket, key, string(encoded)); err != nil {
		return fmt.Errorf("failed to store saved search: %w", err)
	}
	return nil
}
