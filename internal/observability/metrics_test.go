package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("callcenter")

	m.ObserveLLMUsage("grader", "gemini-2.5-flash-lite", model.UsageCost{
		PromptTokens: 100, CompletionTokens: 10, InputUSD: 0.5, OutputUSD: 0.25,
	})
	m.Fallback("grade_answer", "grading_failed")
	m.Fallback("grade_answer", "grading_failed")
	m.ObserveNode("generate", 20*time.Millisecond, errors.New("boom"))
	m.ObserveTurn(&model.Result{Datasource: model.DatasourceFunctionCalls, AnswerGrade: true})
	m.ObserveHTTP("/v1/messages", http.MethodPost, http.StatusOK, time.Millisecond)

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.LLMCost.WithLabelValues("grader", "gemini-2.5-flash-lite")), 1e-9)
	assert.Equal(t, 100.0, testutil.ToFloat64(m.LLMTokens.WithLabelValues("grader", "gemini-2.5-flash-lite", "prompt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("grade_answer", "grading_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeErrors.WithLabelValues("generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("function_calls", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/messages", "POST", "200")))
}

func TestMetricsHandlerServesOwnRegistry(t *testing.T) {
	m := NewMetrics("callcenter")
	m.Fallback("retrieve", "search_failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `callcenter_node_fallbacks_total{node="retrieve",reason="search_failed"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Fallback("generate", "generation_failed")
		m.ObserveNode("generate", time.Second, nil)
		m.ObserveTurn(&model.Result{})
		m.ObserveLLMUsage("generator", "gemini-2.5-flash", model.UsageCost{})
		m.ObserveHTTP("/healthz", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown := InitTracer(context.Background(), TracingConfig{})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
