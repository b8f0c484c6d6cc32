package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveDetection("local_pattern", "medium")
	m.ObserveDetection("local_pattern", "medium")
	m.ObserveDetection("llm", "high")
	m.ObserveLLMFailure("remote_verify")
	m.ObserveIngest(48, 2)
	m.ObserveTier("keyword")

	if got := testutil.ToFloat64(m.Detections.WithLabelValues("local_pattern", "medium")); got != 2 {
		t.Errorf("expected 2 local detections, got %v", got)
	}
	if got := testutil.ToFloat64(m.Detections.WithLabelValues("llm", "high")); got != 1 {
		t.Errorf("expected 1 llm detection, got %v", got)
	}
	if got := testutil.ToFloat64(m.LLMFailures.WithLabelValues("remote_verify")); got != 1 {
		t.Errorf("expected 1 llm failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.IngestChunks.WithLabelValues("inserted")); got != 48 {
		t.Errorf("expected 48 inserted chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.IngestChunks.WithLabelValues("failed")); got != 2 {
		t.Errorf("expected 2 failed chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.RetrievalTier.WithLabelValues("keyword")); got != 1 {
		t.Errorf("expected 1 keyword retrieval, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDetection("llm", "low")
	m.ObserveLLMFailure("x")
	m.ObserveIngest(1, 1)
	m.ObserveTier("sample")
	m.ObserveRequest("/detect", "POST", "200", time.Millisecond)
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("/detect", "POST", "200", 20*time.Millisecond)
	m.ObserveTier("full_text")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"greencheck_http_request_duration_seconds", "greencheck_retrieval_tier_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
