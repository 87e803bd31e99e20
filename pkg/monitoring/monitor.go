package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// ProgressMergeCounter 按来源统计进度合并次数
	ProgressMergeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_progress_merges_total",
			Help: "Progress vectors merged, by update source",
		},
		[]string{"source"},
	)

	// ProgressPersistFailures 持久化失败但已返回乐观结果的次数
	ProgressPersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_progress_persist_failures_total",
			Help: "Progress merges returned optimistically because persisting failed",
		},
		[]string{"source"},
	)

	GradeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learnhub_progress_grade",
			Help:    "Grades computed after each merge",
			Buckets: []float64{0, 10, 25, 50, 75, 90, 100},
		},
	)

	QuizSubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_quiz_submissions_total",
			Help: "Quiz submissions by topic",
		},
		[]string{"topic"},
	)

	CopilotRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_copilot_requests_total",
			Help: "Copilot chat turns by outcome",
		},
		[]string{"outcome"},
	)

	LLMRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_llm_requests_total",
			Help: "LLM provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnhub_llm_request_duration_seconds",
			Help:    "LLM provider call latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	LLMTokenCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_llm_tokens_total",
			Help: "Tokens consumed by direction",
		},
		[]string{"provider", "direction"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learnhub_progress_ws_connections",
			Help: "Open progress websocket connections",
		},
	)
)

var registerOnce sync.Once

// Init 注册所有指标，重复调用安全
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ProgressMergeCounter,
			ProgressPersistFailures,
			GradeHistogram,
			QuizSubmissionCounter,
			CopilotRequestCounter,
			LLMRequestCounter,
			LLMRequestDuration,
			LLMTokenCounter,
			WSConnections,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
