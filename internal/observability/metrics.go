package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
)

// Metrics groups all Prometheus instruments used by the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Turns        *prometheus.CounterVec
	NodeLatency  *prometheus.HistogramVec
	NodeErrors   *prometheus.CounterVec
	Fallbacks    *prometheus.CounterVec
	LLMTokens    *prometheus.CounterVec
	LLMCost      *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by datasource and answer grade.",
		}, []string{"datasource", "answer_grade"}),
		NodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Pipeline node latency in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"node"}),
		NodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_errors_total",
			Help:      "Pipeline node errors by node.",
		}, []string{"node"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_fallbacks_total",
			Help:      "Steps that fell back to their default, by node and reason.",
		}, []string{"node", "reason"}),
		LLMTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens by role, model and direction.",
		}, []string{"role", "model", "direction"}),
		LLMCost: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Estimated LLM spend in USD by role and model.",
		}, []string{"role", "model"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) ObserveTurn(res *model.Result) {
	if m == nil || res == nil {
		return
	}
	m.Turns.WithLabelValues(string(res.Datasource), strconv.FormatBool(res.AnswerGrade)).Inc()
}

func (m *Metrics) ObserveNode(node string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.NodeLatency.WithLabelValues(node).Observe(d.Seconds())
	if err != nil {
		m.NodeErrors.WithLabelValues(node).Inc()
	}
}

func (m *Metrics) Fallback(node, reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(node, reason).Inc()
}

func (m *Metrics) ObserveLLMUsage(role, modelName string, cost model.UsageCost) {
	if m == nil {
		return
	}
	m.LLMTokens.WithLabelValues(role, modelName, "prompt").Add(float64(cost.PromptTokens))
	m.LLMTokens.WithLabelValues(role, modelName, "completion").Add(float64(cost.CompletionTokens))
	m.LLMCost.WithLabelValues(role, modelName).Add(cost.TotalUSD())
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
