package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	walletOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Wallet operations by kind and outcome.",
		},
		[]string{"op", "result"},
	)

	networkFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "wallet",
			Name:      "network_steps_total",
			Help:      "Network negotiation steps attempted and their outcome.",
		},
		[]string{"step", "result"},
	)

	txStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "tx",
			Name:      "status_total",
			Help:      "Terminal transaction statuses observed.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "miniapp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		walletOperations,
		networkFallbacks,
		txStatus,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// RecordWalletOp counts a finished wallet operation.
func RecordWalletOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	walletOperations.WithLabelValues(op, result).Inc()
}

// RecordNetworkStep counts one step of the network fallback chain.
func RecordNetworkStep(step string, ok bool) {
	networkFallbacks.WithLabelValues(step, strconv.FormatBool(ok)).Inc()
}

func RecordTxStatus(status string) {
	txStatus.WithLabelValues(status).Inc()
}

// Handler exposes the registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		method := c.Method()
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().StatusCode())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
