package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики процесса. Регистрируются в prometheus.DefaultRegisterer
// и отдаются через promhttp.Handler() на /metrics.
var (
	// HTTPRequests — HTTP запросы по маршруту и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_api_http_requests_total",
		Help: "Total HTTP requests handled by outreach-api",
	}, []string{"method", "route", "code"})

	// HTTPDuration — длительность обработки HTTP запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outreach_api_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Operations — операции движка по имени и исходу (ok, validation, not_found, internal).
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_operations_total",
		Help: "Engine operations by outcome",
	}, []string{"op", "outcome"})

	// RunTransitions — переходы статуса выездов.
	RunTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_run_transitions_total",
		Help: "Run status transitions",
	}, []string{"to"})

	// StatusAppends — записи журнала статусов запросов по статусу.
	StatusAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_request_status_appends_total",
		Help: "Request status history entries appended",
	}, []string{"status"})

	// ChangeFeedDuration — время сборки дельты для polling-синхронизации.
	ChangeFeedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outreach_change_feed_duration_seconds",
		Help:    "Time to assemble a change feed delta",
		Buckets: prometheus.DefBuckets,
	})

	// EventsPublished — события в RabbitMQ по routing key и исходу.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_events_published_total",
		Help: "Domain events published to the broker",
	}, []string{"routing_key", "outcome"})

	// SweptRuns — выезды, отменённые sweeper'ом как просроченные.
	SweptRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_sweeper_cancelled_runs_total",
		Help: "Stale scheduled runs cancelled by the sweeper",
	})
)
