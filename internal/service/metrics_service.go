package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes recorded on exam_bookings_total.
const (
	BookingOutcomeBooked    = "booked"
	BookingOutcomeFull      = "capacity_exceeded"
	BookingOutcomeDuplicate = "duplicate"
	BookingOutcomeInvalid   = "invalid_state"
	BookingOutcomeCancelled = "cancelled"
	BookingOutcomeError     = "error"
)

// MetricsService owns the Prometheus registry for HTTP, cache and domain
// collectors. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	examBookings      *prometheus.CounterVec
	gradesRecorded    *prometheus.CounterVec
	lessonCompletions prometheus.Counter
	positionRefresh   *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		examBookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_bookings_total",
			Help: "Exam booking attempts by outcome",
		}, []string{"outcome"}),
		gradesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grades_recorded_total",
			Help: "Grade ledger entries appended by kind",
		}, []string{"kind"}),
		lessonCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lesson_completions_total",
			Help: "Lesson completions recorded",
		}),
		positionRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drip_position_refresh_total",
			Help: "Enrollment position refreshes by whether a write was needed",
		}, []string{"changed"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification dispatch results",
		}, []string{"event", "result"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.examBookings, m.gradesRecorded, m.lessonCompletions, m.positionRefresh, m.notifications, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordBooking counts a booking attempt or cancellation.
func (m *MetricsService) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.examBookings.WithLabelValues(outcome).Inc()
}

// RecordGrade counts a ledger append of kind "workbook" or "exam".
func (m *MetricsService) RecordGrade(kind string) {
	if m == nil {
		return
	}
	m.gradesRecorded.WithLabelValues(kind).Inc()
}

// RecordLessonCompletion counts a new completion.
func (m *MetricsService) RecordLessonCompletion() {
	if m == nil {
		return
	}
	m.lessonCompletions.Inc()
}

// RecordPositionRefresh counts a refresh and whether it wrote.
func (m *MetricsService) RecordPositionRefresh(changed bool) {
	if m == nil {
		return
	}
	m.positionRefresh.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// RecordNotification counts a dispatch result: queued, dropped, delivered, failed.
func (m *MetricsService) RecordNotification(event, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, result).Inc()
}
