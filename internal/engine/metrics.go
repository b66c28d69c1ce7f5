package engine

import "github.com/prometheus/client_golang/prometheus"

// Rejection reasons recorded on operationsRejected.
const (
	reasonQueueFull    = "queue_full"
	reasonTypeLimit    = "type_limit"
	reasonNoProcessor  = "no_processor"
	reasonStorage      = "storage"
	reasonStopped      = "stopped"
	reasonCanceled     = "canceled"
	reasonInvalid      = "invalid"
	unknownPayloadType = "unknown"
)

var (
	operationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aos_operations_published_total",
			Help: "Total number of operations admitted to the queue.",
		},
		[]string{"payload_type"},
	)

	operationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aos_operations_rejected_total",
			Help: "Total number of publish calls rejected at admission.",
		},
		[]string{"payload_type", "reason"},
	)

	operationsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aos_operations_finished_total",
			Help: "Total number of operations that reached a terminal status.",
		},
		[]string{"payload_type", "status"},
	)

	operationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aos_operations_dropped_total",
			Help: "Total number of dequeued payloads dropped before execution.",
		},
		[]string{"payload_type"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aos_operation_duration_seconds",
			Help:    "Operation execution time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"payload_type"},
	)

	activeOperations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aos_operations_active",
		Help: "Number of operations currently executing.",
	})

	queueInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aos_queue_in_flight",
		Help: "Number of admitted operations that have not finished processing.",
	})
)

func init() {
	prometheus.MustRegister(operationsPublished)
	prometheus.MustRegister(operationsRejected)
	prometheus.MustRegister(operationsFinished)
	prometheus.MustRegister(operationsDropped)
	prometheus.MustRegister(operationDuration)
	prometheus.MustRegister(activeOperations)
	prometheus.MustRegister(queueInFlight)
}
