package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-numfeed/internal/config"
	"github.com/go-while/go-numfeed/internal/database"
	"github.com/go-while/go-numfeed/internal/feed"
	"github.com/go-while/go-numfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, numbers []string, ledger *database.LedgerDB) *WebServer {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DefaultFetchCount = 2
	cfg.TestNumber = "T"
	store := feed.NewStore(numbers, "hello", cfg.DefaultFetchCount, cfg.TestNumber)
	return NewServer(store, ledger, cfg)
}

func doFetch(t *testing.T, s *WebServer, query string) (*httptest.ResponseRecorder, models.FetchResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/fetch"+query, nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	var resp models.FetchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestFetchScenario(t *testing.T) {
	s := newTestServer(t, []string{"a", "b", "c", "d", "e"}, nil)

	rec, resp := doFetch(t, s, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FetchResponse{Numbers: "T,a,b", Message: "hello", Count: 3}, resp)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, resp = doFetch(t, s, "?n=3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FetchResponse{Numbers: "T,c,d,e", Message: "hello", Count: 4}, resp)

	rec, resp = doFetch(t, s, "?n=7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FetchResponse{Numbers: "", Message: "No more numbers", Count: 0}, resp)
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}

func TestFetchMalformedSizeUsesDefault(t *testing.T) {
	for _, query := range []string{"?n=abc", "?n=0", "?n=-2", "?n=", "?n=1.5"} {
		t.Run(query, func(t *testing.T) {
			s := newTestServer(t, []string{"a", "b", "c"}, nil)
			rec, resp := doFetch(t, s, query)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "T,a,b", resp.Numbers)
			assert.Equal(t, 3, resp.Count)
		})
	}
}

func TestFetchEmptyStore(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec, resp := doFetch(t, s, "?n=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.FetchResponse{Numbers: "", Message: "No more numbers", Count: 0}, resp)
}

func TestFetchResponseShape(t *testing.T) {
	s := newTestServer(t, []string{"a"}, nil)
	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Len(t, raw, 3)
	assert.Contains(t, raw, "numbers")
	assert.Contains(t, raw, "message")
	assert.Contains(t, raw, "count")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestFetchConcurrentClients(t *testing.T) {
	numbers := make([]string, 300)
	for i := range numbers {
		numbers[i] = "x"
	}
	s := newTestServer(t, numbers, nil)

	var wg sync.WaitGroup
	var mux sync.Mutex
	served := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				req := httptest.NewRequest(http.MethodGet, "/fetch?n=7", nil)
				rec := httptest.NewRecorder()
				s.Router.ServeHTTP(rec, req)
				var resp models.FetchResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Error(err)
					return
				}
				if resp.Count == 0 {
					return
				}
				mux.Lock()
				served += resp.Count - 1
				mux.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(numbers), served)
	assert.True(t, s.Store.Snapshot().Exhausted)
}

func TestStatsDoesNotMoveCursor(t *testing.T) {
	s := newTestServer(t, []string{"a", "b", "c"}, nil)
	doFetch(t, s, "")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		s.Router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats models.StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.Consumed)
		assert.Equal(t, 1, stats.Remaining)
		assert.False(t, stats.Exhausted)
		assert.Equal(t, 2, stats.DefaultFetchCount)
		assert.Nil(t, stats.Ledger)
	}

	_, resp := doFetch(t, s, "")
	assert.Equal(t, "T,c", resp.Numbers)
}

func TestLedgerRoutes(t *testing.T) {
	s := newTestServer(t, []string{"a", "b"}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ledger", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	dir := t.TempDir()
	ledger, err := database.NewLedgerDB(dir, 16)
	require.NoError(t, err)
	s = newTestServer(t, []string{"a", "b", "c"}, ledger)

	fetchRec, _ := doFetch(t, s, "?n=1")
	requestID := fetchRec.Header().Get("X-Request-ID")
	doFetch(t, s, "")
	doFetch(t, s, "") // exhausted, not recorded

	require.NoError(t, ledger.Close())
	reopened, err := database.NewLedgerDB(dir, 16)
	require.NoError(t, err)
	defer reopened.Close()
	s.Ledger = reopened

	req = httptest.NewRequest(http.MethodGet, "/ledger?limit=10", nil)
	rec = httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []models.LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, requestID, entries[1].RequestID)
	assert.Equal(t, 0, entries[1].StartIndex)
	assert.Equal(t, 1, entries[1].EndIndex)
	assert.Equal(t, 1, entries[0].StartIndex)
	assert.Equal(t, 3, entries[0].EndIndex)
	assert.WithinDuration(t, time.Now(), entries[0].ServedAt, time.Minute)

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec = httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	var stats models.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.NotNil(t, stats.Ledger)
	assert.Equal(t, int64(2), stats.Ledger.Pages)
	assert.Equal(t, int64(3), stats.Ledger.Numbers)
}

func TestPing(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, nil, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
