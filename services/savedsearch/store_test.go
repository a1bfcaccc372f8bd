package savedsearch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwork/discovery/config"
	"github.com/trustwork/discovery/db/kvdb"
	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/search"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	t.Setenv("KVDB_PATH", filepath.Join(t.TempDir(), "savedsearches.db"))
	cfg, err := config.Load("test")
	require.NoError(t, err)

	db, err := kvdb.New(logger.New(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(logger.New(), db)
}

func validInput() Input {
	return Input{
		Name:       "React jobs in Toronto",
		SearchType: TypeJobs,
		RawQuery:   "react",
		Filters:    search.Filters{Location: "Toronto"},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	created, err := store.Create("user-1", validInput())
	assert.NoError(err)
	assert.NotEmpty(created.ID)
	assert.Equal("user-1", created.OwnerID)
	assert.Equal(FrequencyOff, created.AlertFrequency, "frequency defaults to off")
	assert.Nil(created.LastRunAt)

	loaded, err := store.Get("user-1", created.ID)
	assert.NoError(err)
	assert.Equal(created.Name, loaded.Name)
	assert.Equal(created.SearchType, loaded.SearchType)
	assert.Equal("Toronto", loaded.Filters.Location)
}

var createValidationTestCases = []struct {
	name    string
	ownerID string
	mutate  func(*Input)
}{
	{
		name:    "Missing owner",
		ownerID: "",
		mutate:  func(*Input) {},
	},
	{
		name:    "Blank name",
		ownerID: "user-1",
		mutate:  func(input *Input) { input.Name = "   " },
	},
	{
		name:    "Name too long",
		ownerID: "user-1",
		mutate: func(input *Input) {
			for len(input.Name) <= maxNameLength {
				input.Name += "x"
			}
		},
	},
	{
		name:    "Unknown search type",
		ownerID: "user-1",
		mutate:  func(input *Input) { input.SearchType = Type("messages") },
	},
	{
		name:    "Blank query",
		ownerID: "user-1",
		mutate:  func(input *Input) { input.RawQuery = "   " },
	},
	{
		name:    "Filter-only alert",
		ownerID: "user-1",
		mutate: func(input *Input) {
			input.RawQuery = ""
			input.AlertEnabled = true
			input.AlertFrequency = FrequencyDaily
		},
	},
	{
		name:    "Unknown frequency",
		ownerID: "user-1",
		mutate:  func(input *Input) { input.AlertFrequency = Frequency("hourly") },
	},
	{
		name:    "Alerts enabled without frequency",
		ownerID: "user-1",
		mutate:  func(input *Input) { input.AlertEnabled = true },
	},
}

func TestStoreCreateValidation(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	for _, testCase := range createValidationTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			input := validInput()
			testCase.mutate(&input)

			_, err := store.Create(testCase.ownerID, input)
			assert.ErrorIs(err, ErrInvalidInput)
		})
	}
}

func TestStoreListFiltersAndSorts(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	current := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	first, err := store.Create("user-1", validInput())
	assert.NoError(err)

	current = current.Add(time.Minute)
	gigInput := validInput()
	gigInput.Name = "Design gigs"
	gigInput.SearchType = TypeGigs
	second, err := store.Create("user-1", gigInput)
	assert.NoError(err)

	_, err = store.Create("user-2", validInput())
	assert.NoError(err)

	all, err := store.List("user-1", nil)
	assert.NoError(err)
	assert.Len(all, 2, "other owners' searches are invisible")
	assert.Equal(second.ID, all[0].ID, "newest update first")
	assert.Equal(first.ID, all[1].ID)

	jobsOnly := TypeJobs
	filtered, err := store.List("user-1", &jobsOnly)
	assert.NoError(err)
	assert.Len(filtered, 1)
	assert.Equal(first.ID, filtered[0].ID)
}

func TestStoreUpdate(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	created, err := store.Create("user-1", validInput())
	assert.NoError(err)

	name := "Remote react jobs"
	enabled := true
	frequency := FrequencyDaily
	updated, err := store.Update("user-1", created.ID, Patch{
		Name:           &name,
		AlertEnabled:   &enabled,
		AlertFrequency: &frequency,
	})
	assert.NoError(err)
	assert.Equal(name, updated.Name)
	assert.True(updated.AlertEnabled)
	assert.Equal(FrequencyDaily, updated.AlertFrequency)
	assert.Equal(created.RawQuery, updated.RawQuery, "query is immutable")

	// Turning the frequency off while alerts stay enabled breaks the
	// alerting invariant and must be rejected.
	off := FrequencyOff
	_, err = store.Update("user-1", created.ID, Patch{AlertFrequency: &off})
	assert.ErrorIs(err, ErrInvalidInput)
}

func TestStoreOwnership(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	created, err := store.Create("user-1", validInput())
	assert.NoError(err)

	_, err = store.Get("user-2", created.ID)
	assert.ErrorIs(err, ErrNotFound, "another owner's prefix never reaches the record")

	err = store.Delete("user-2", created.ID)
	assert.ErrorIs(err, ErrNotFound)

	_, err = store.Get("user-1", "no-such-id")
	assert.ErrorIs(err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	created, err := store.Create("user-1", validInput())
	assert.NoError(err)

	assert.NoError(store.Delete("user-1", created.ID))

	_, err = store.Get("user-1", created.ID)
	assert.ErrorIs(err, ErrNotFound)
}

func TestStoreRecordRunDoesNotTouchUpdatedAt(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	current := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	created, err := store.Create("user-1", validInput())
	assert.NoError(err)

	current = current.Add(time.Hour)
	refs := []string{"jobs:job-1", "jobs:job-2"}
	assert.NoError(store.RecordRun("user-1", created.ID, Fingerprint(refs), refs))

	loaded, err := store.Get("user-1", created.ID)
	assert.NoError(err)
	assert.NotNil(loaded.LastRunAt)
	assert.Equal(current, *loaded.LastRunAt)
	assert.Equal(Fingerprint(refs), loaded.LastResultFingerprint)
	assert.Equal(refs, loaded.LastResultRefs)
	assert.Equal(created.UpdatedAt, loaded.UpdatedAt, "runs are not owner edits")
}

func TestStoreListAlertEnabled(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t)

	input := validInput()
	input.AlertEnabled = true
	input.AlertFrequency = FrequencyDaily
	alerting, err := store.Create("user-1", input)
	assert.NoError(err)

	_, err = store.Create("user-2", validInput())
	assert.NoError(err)

	enabled, err := store.ListAlertEnabled()
	assert.NoError(err)
	assert.Len(enabled, 1)
	assert.Equal(alerting.ID, enabled[0].ID)

	assert.NoError(store.DisableAlerts("user-1", alerting.ID))

	enabled, err = store.ListAlertEnabled()
	assert.NoError(err)
	assert.Empty(enabled)
}

func TestFingerprintIsOrderInsensitive(t *testing.T) {
	assert := require.New(t)

	a := Fingerprint([]string{"jobs:1", "gigs:2", "faqs:3"})
	b := Fingerprint([]string{"faqs:3", "jobs:1", "gigs:2"})
	assert.Equal(a, b)

	c := Fingerprint([]string{"jobs:1", "gigs:2"})
	assert.NotEqual(a, c)
	assert.Len(a, 64)
}
