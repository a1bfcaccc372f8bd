// Package alerts re-runs due saved searches on a timer, diffs the results
// against the previous run and forwards new matches to the notifier.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/savedsearch"
	"github.com/trustwork/discovery/services/search"
)

const (
	defaultTick        = time.Minute
	defaultConcurrency = 4
	perSearchTimeout   = 10 * time.Second
	maxDeltaPerRun     = 20
)

var defaultBackoff = []time.Duration{time.Second, 4 * time.Second, 16 * time.Second}

// SearchRunner re-executes a saved query. The orchestrator satisfies it.
type SearchRunner interface {
	Run(ctx context.Context, query search.Query) search.Response
}

// Engine drives the alert loop: a cron tick enumerates due saved searches
// and processes them with bounded concurrency.
type Engine struct {
	logger   logger.Logger
	store    *savedsearch.Store
	runner   SearchRunner
	notifier Notifier

	cron *cron.Cron
	sem  *semaphore.Weighted
	tick time.Duration

	backoff []time.Duration
	now     func() time.Time
}

func New(logger logger.Logger, store *savedsearch.Store, runner SearchRunner, notifier Notifier, tick time.Duration, concurrency int) *Engine {
	if tick <= 0 {
		tick = defaultTick
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Engine{
		logger:   logger,
		store:    store,
		runner:   runner,
		notifier: notifier,
		cron:     cron.New(),
		sem:      semaphore.NewWeighted(int64(concurrency)),
		tick:     tick,
		backoff:  defaultBackoff,
		now:      time.Now,
	}
}

// Start registers the tick and starts the scheduler.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.tick), func() {
		e.RunDue(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	e.cron.Start()
	e.logger.Info("alert engine started", "tick", e.tick.String())
	return nil
}

// Stop shuts the scheduler down and waits for in-flight entries.
func (e *Engine) Stop() {
	<-e.cron.Stop().Done()
	e.logger.Info("alert engine stopped")
}

// RunDue processes every saved search whose alert interval has elapsed.
// Concurrency is bounded so one tick cannot flood the search pipeline; the
// tick itself never blocks on slow entries.
func (e *Engine) RunDue(ctx context.Context) {
	savedSearches, err := e.store.ListAlertEnabled()
	if err != nil {
		e.logger.Error("failed to enumerate alert-enabled saved searches", "err", err.Error())
		return
	}

	now := e.now()
	for _, savedSearch := range savedSearches {
		if !due(savedSearch, now) {
			continue
		}

		if err := e.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(entry savedsearch.SavedSearch) {
			defer e.sem.Release(1)
			e.process(ctx, entry)
		}(savedSearch)
	}
}

func due(savedSearch savedsearch.SavedSearch, now time.Time) bool {
	if !savedSearch.AlertEnabled {
		return false
	}
	interval := savedSearch.AlertFrequency.Interval()
	if interval == 0 {
		return false
	}
	if savedSearch.LastRunAt == nil {
		return true
	}
	return now.Sub(*savedSearch.LastRunAt) >= interval
}

// process runs one due entry with retries. Transient failures back off and
// retry; after exhaustion the entry is left for the next tick. Fatal
// failures disable alerting on the entry.
func (e *Engine) process(ctx context.Context, entry savedsearch.SavedSearch) {
	var lastErr error
	for attempt := 0; attempt <= len(e.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.backoff[attempt-1]):
			}
		}

		err, fatal := e.runOnce(ctx, entry)
		if err == nil {
			return
		}
		if fatal {
			e.logger.Error("saved search alert failed fatally, disabling alerts",
				"saved_search_id", entry.ID, "owner_id", entry.OwnerID, "err", err.Error())
			if disableErr := e.store.DisableAlerts(entry.OwnerID, entry.ID); disableErr != nil {
				e.logger.Error("failed to disable alerts", "saved_search_id", entry.ID, "err", disableErr.Error())
			}
			return
		}

		lastErr = err
		e.logger.Warn("saved search alert run failed, will retry",
			"saved_search_id", entry.ID, "attempt", attempt+1, "err", err.Error())
	}

	e.logger.Error("saved search alert failed after retries, leaving for next tick",
		"saved_search_id", entry.ID, "err", lastErr.Error())
}

func (e *Engine) runOnce(ctx context.Context, entry savedsearch.SavedSearch) (err error, fatal bool) {
	runCtx, cancel := context.WithTimeout(ctx, perSearchTimeout)
	defer cancel()

	response := e.runner.Run(runCtx, search.Query{
		RawQuery:    entry.RawQuery,
		Categories:  []search.Category{search.Category(entry.SearchType)},
		Filters:     entry.Filters,
		PrincipalID: entry.OwnerID,
		PageSize:    50,
	})

	if response.Err != nil {
		// A query that no longer sanitises will never succeed again.
		if response.Err.Code == search.CodeInvalidQuery {
			return response.Err, true
		}
		return response.Err, false
	}

	refs := response.Aggregated.Refs()
	fingerprint := savedsearch.Fingerprint(refs)

	// The first run only establishes the baseline; alerting starts from the
	// second run onwards.
	if entry.LastRunAt != nil && fingerprint != entry.LastResultFingerprint {
		if err := e.notifyNew(runCtx, entry, refs); err != nil {
			// Skipping RecordRun keeps the old baseline so the next tick
			// retries delivery.
			return err, false
		}
	}

	if err := e.store.RecordRun(entry.OwnerID, entry.ID, fingerprint, refs); err != nil {
		if errors.Is(err, savedsearch.ErrNotFound) || errors.Is(err, savedsearch.ErrNotOwner) {
			return err, true
		}
		return err, false
	}
	return nil, false
}

// notifyNew emits one notification per newly appearing ref, capped per run.
func (e *Engine) notifyNew(ctx context.Context, entry savedsearch.SavedSearch, refs []string) error {
	previous := make(map[string]bool, len(entry.LastResultRefs))
	for _, ref := range entry.LastResultRefs {
		previous[ref] = true
	}

	emitted := 0
	for _, ref := range refs {
		if previous[ref] {
			continue
		}
		if emitted >= maxDeltaPerRun {
			break
		}

		notification := Notification{
			OwnerID:       entry.OwnerID,
			SavedSearchID: entry.ID,
			Kind:          KindNewMatch,
			Refs:          []string{ref},
			OccurredAt:    e.now(),
		}
		if err := e.notifier.Notify(ctx, notification); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		emitted++
	}

	return nil
}
