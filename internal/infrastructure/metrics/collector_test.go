package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

var _ ports.AnswerRecorder = (*Collector)(nil)

func TestCollector_AnswerMetrics(t *testing.T) {
	c := NewCollector("netra")

	c.ObserveAnswer("stream", "done")
	c.ObserveAnswer("stream", "done")
	c.ObserveAnswer("once", "error")
	c.RetrievalDegraded()
	c.TokenStreamed()
	c.TokenStreamed()
	c.TokenStreamed()
	c.ObserveGeneration("groq", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.answersTotal.WithLabelValues("stream", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.answersTotal.WithLabelValues("once", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retrievalDegraded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.streamTokens))
	assert.Equal(t, 1, testutil.CollectAndCount(c.generationDuration))
}

func TestCollector_HTTPAndCache(t *testing.T) {
	c := NewCollector("netra")

	c.RecordHTTPRequest("POST", "/chat", 200, 20*time.Millisecond)
	c.RecordHTTPRequest("POST", "/chat", 429, time.Millisecond)
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheLookup(false)
	c.ChunksIngested(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/chat", "429")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.ingestedChunks))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("netra")
	c.ObserveAnswer("once", "done")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `netra_answers_total{mode="once",outcome="done"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCollectors_Independent(t *testing.T) {
	// private registries: two collectors never clash
	a, b := NewCollector("netra"), NewCollector("netra")
	a.TokenStreamed()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.streamTokens))
}
