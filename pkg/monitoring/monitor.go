package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// ModelRequestDuration 外部大模型调用耗时
	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_model_request_duration_seconds",
			Help:    "Duration of external model calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"}, // tools / structured
	)

	// ToolExecutions 工具调用执行结果计数
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tool_executions_total",
			Help: "Tool invocations dispatched per turn, by outcome",
		},
		[]string{"tool", "outcome"}, // outcome: ok / phase_violation / invalid_args / failed
	)

	// TurnCounter 会话轮次计数
	TurnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_turns_total",
			Help: "Conversation turns processed, by terminal outcome",
		},
		[]string{"outcome"}, // complete / model_error / lock_busy
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(TurnCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
