// Common test helpers
package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/trustwork/discovery/config"
	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/db/kvdb"
	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/savedsearch"
	"github.com/trustwork/discovery/services/search"
	"github.com/trustwork/discovery/validation"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

const testPrincipalHeader = "X-Principal-ID"

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    map[string]any
	queryParams    map[string]string
	expectedStatus int
	expectedCode   string
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func seedTestStore(store *datastore.MemoryStore) {
	postedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	store.SeedJobs([]datastore.Job{
		{ID: "job-1", Title: "React Developer", Company: "Acme", Description: "Build React dashboards", Location: "Toronto", Verified: true, PostedAt: postedAt},
		{ID: "job-2", Title: "Go Engineer", Company: "Beta", Description: "Backend in Go", Location: "Vancouver", Remote: true, PostedAt: postedAt},
	})
	store.SeedGigs([]datastore.Gig{
		{ID: "gig-1", Title: "React landing page", Description: "Small react site", BudgetMin: 500, BudgetMax: 1500, PostedAt: postedAt},
	})
	store.SeedFreelancers([]datastore.Freelancer{
		{ID: "fl-1", FullName: "Ada Wong", Title: "React specialist", Skills: []string{"React"}, Province: "Ontario", Verified: true, Rating: 4.8, JobsCompleted: 40, Role: "freelancer"},
	})
	store.SeedMessages([]datastore.Message{
		{ID: "msg-1", ConversationID: "conv-1", SenderID: "user-2", Participants: []string{"user-1", "user-2"}, Content: "react contract details", CreatedAt: postedAt},
	})
	store.SeedFAQs([]datastore.FAQ{
		{ID: "faq-1", Question: "How do I list react skills?", Answer: "Add react to your profile."},
	})
}

func setupTestServer(t *testing.T, assert *require.Assertions) *gin.Engine {

	t.Setenv("ENV", "test")
	t.Setenv("KVDB_PATH", filepath.Join(t.TempDir(), "savedsearches.db"))

	cfg, err := config.Load("test")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	store := datastore.NewMemoryStore(testLogger)
	seedTestStore(store)

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")
	t.Cleanup(func() {
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	orchestrator := search.NewOrchestrator(testLogger, store, search.NewMemoryLimiter())
	savedSearches := savedsearch.NewStore(testLogger, kvDB)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		principalID := c.GetHeader(testPrincipalHeader)
		if principalID == "" {
			principalID = datastore.PrincipalAnonymous
		}
		c.Set(ContextKeyPrincipal, principalID)
		c.Next()
	})

	SetupSearch(router, testLogger, orchestrator, validator)
	SetupSavedSearches(router, testLogger, savedSearches, validator)

	return router
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]any, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	decoded := map[string]any{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &decoded))
	return decoded
}

func errorCode(decoded map[string]any) string {
	errObj, ok := decoded["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func dataObject(assert *require.Assertions, decoded map[string]any) map[string]any {
	data, ok := decoded["data"].(map[string]any)
	assert.True(ok, "response data is not an object: %v", decoded["data"])
	return data
}
