// Package metrics keeps process counters and renders them in Prometheus
// text format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	datasetsGeneratedTotal atomic.Uint64
	sourcesLoadedTotal     atomic.Uint64
	sourceFailuresTotal    atomic.Uint64
	rowsDroppedTotal       atomic.Uint64
	modelsTrainedTotal     atomic.Uint64
	predictionsTotal       atomic.Uint64
	activeSessions         atomic.Int64

	trainDuration = newHistogram([]float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000})
)

func IncDatasetsGenerated() { datasetsGeneratedTotal.Add(1) }

// ObserveSourceLoad records a successful fetch and the rows it dropped.
func ObserveSourceLoad(dropped int) {
	sourcesLoadedTotal.Add(1)
	if dropped > 0 {
		rowsDroppedTotal.Add(uint64(dropped))
	}
}

func IncSourceFailures() { sourceFailuresTotal.Add(1) }

func IncPredictions() { predictionsTotal.Add(1) }

// ObserveTraining records one model fit and its duration.
func ObserveTraining(d time.Duration) {
	modelsTrainedTotal.Add(1)
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	trainDuration.Observe(ms)
}

func SetActiveSessions(n int) { activeSessions.Store(int64(n)) }

// Handler exposes metrics in Prometheus text format.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(Render()))
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "datasets_generated_total", "Synthetic datasets generated", datasetsGeneratedTotal.Load())
	writeCounter(&buf, "sources_loaded_total", "Remote sources fetched and parsed", sourcesLoadedTotal.Load())
	writeCounter(&buf, "source_failures_total", "Remote source fetches that failed", sourceFailuresTotal.Load())
	writeCounter(&buf, "rows_dropped_total", "Rows dropped while cleaning remote sources", rowsDroppedTotal.Load())
	writeCounter(&buf, "models_trained_total", "Models fitted", modelsTrainedTotal.Load())
	writeCounter(&buf, "predictions_total", "Predictions served", predictionsTotal.Load())
	writeGauge(&buf, "active_sessions", "Sessions currently held in memory", activeSessions.Load())
	writeHistogram(&buf, "model_train_duration_ms", "Model fit duration in milliseconds", trainDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket whose bound holds it; buckets
// are summed when rendered.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
