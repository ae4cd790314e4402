package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64

	ClassificationsTotal     uint64
	ClassificationsRunning   uint64
	ClassificationsFailed    uint64
	ClassificationsMalicious uint64
	ClassificationsClean     uint64

	StartTime time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// ClassificationStarted counts a queued object as running.
func ClassificationStarted() {
	atomic.AddUint64(&globalMetrics.ClassificationsTotal, 1)
	atomic.AddUint64(&globalMetrics.ClassificationsRunning, 1)
}

// ClassificationFinished moves a running classification to its final counter.
func ClassificationFinished(status filecheck.Status) {
	atomic.AddUint64(&globalMetrics.ClassificationsRunning, ^uint64(0))
	switch status {
	case filecheck.StatusMalicious:
		atomic.AddUint64(&globalMetrics.ClassificationsMalicious, 1)
	case filecheck.StatusClean:
		atomic.AddUint64(&globalMetrics.ClassificationsClean, 1)
	default:
		atomic.AddUint64(&globalMetrics.ClassificationsFailed, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"requests_total":            atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress":      atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":          atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":           atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"classifications_total":     atomic.LoadUint64(&globalMetrics.ClassificationsTotal),
		"classifications_running":   atomic.LoadUint64(&globalMetrics.ClassificationsRunning),
		"classifications_failed":    atomic.LoadUint64(&globalMetrics.ClassificationsFailed),
		"classifications_malicious": atomic.LoadUint64(&globalMetrics.ClassificationsMalicious),
		"classifications_clean":     atomic.LoadUint64(&globalMetrics.ClassificationsClean),
		"uptime_seconds":            time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
