package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                          sync.Once
	metricsRouter                 *chi.Mux
	httpRequestDurationHistogram  *prometheus.HistogramVec
	queueProcessingFailureCounter *prometheus.CounterVec
	queueUnprocessableCounter     *prometheus.CounterVec
	relayBlockHeightGauge         *prometheus.GaugeVec
	relayEventCounter             *prometheus.CounterVec
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	go func() {
		metricsAddr := fmt.Sprintf(":%d", metricsPort)
		err := http.ListenAndServe(metricsAddr, metricsRouter)
		if err != nil {
			log.Fatal().Err(err).Msgf("error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"endpoint", "status"},
	)

	queueProcessingFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_message_processing_failures_total",
			Help: "Total number of queue messages that failed processing and were requeued.",
		},
		[]string{"queue"},
	)

	queueUnprocessableCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_unprocessable_messages_total",
			Help: "Total number of queue messages parked as unprocessable.",
		},
		[]string{"queue"},
	)

	relayBlockHeightGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_last_processed_block",
			Help: "Last block processed by the chain watcher, per chain.",
		},
		[]string{"chain_id"},
	)

	relayEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Total number of on-chain events relayed into the queues.",
		},
		[]string{"chain_id", "event"},
	)

	prometheus.MustRegister(
		httpRequestDurationHistogram,
		queueProcessingFailureCounter,
		queueUnprocessableCounter,
		relayBlockHeightGauge,
		relayEventCounter,
	)
}

// StartHttpRequestDurationTimer starts a timer to measure http request handling duration.
func StartHttpRequestDurationTimer(endpoint string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(endpoint, fmt.Sprintf("%d", statusCode)).Observe(duration)
	}
}

// The recorders below are no-ops until Init has run.

func RecordQueueMessageProcessingFailure(queueName string) {
	if queueProcessingFailureCounter == nil {
		return
	}
	queueProcessingFailureCounter.WithLabelValues(queueName).Inc()
}

func RecordQueueUnprocessableMessage(queueName string) {
	if queueUnprocessableCounter == nil {
		return
	}
	queueUnprocessableCounter.WithLabelValues(queueName).Inc()
}

func RecordRelayBlockHeight(chainId uint64, blockHeight uint64) {
	if relayBlockHeightGauge == nil {
		return
	}
	relayBlockHeightGauge.WithLabelValues(fmt.Sprintf("%d", chainId)).Set(float64(blockHeight))
}

func RecordRelayEvent(chainId uint64, event string) {
	if relayEventCounter == nil {
		return
	}
	relayEventCounter.WithLabelValues(fmt.Sprintf("%d", chainId), event).Inc()
}
