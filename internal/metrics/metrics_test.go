package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistogram_CumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var buf bytes.Buffer
	writeHistogram(&buf, "x", "help", h.Snapshot())
	out := buf.String()

	require.Contains(t, out, `x_bucket{le="10"} 1`)
	require.Contains(t, out, `x_bucket{le="100"} 2`)
	require.Contains(t, out, `x_bucket{le="+Inf"} 3`)
	require.Contains(t, out, "x_sum 555")
}

func TestHandler_RendersCounters(t *testing.T) {
	IncPredictions()
	ObserveSourceLoad(3)
	ObserveTraining(2 * time.Millisecond)
	SetActiveSessions(4)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	body := rec.Body.String()
	require.Contains(t, body, "# TYPE predictions_total counter")
	require.Contains(t, body, "active_sessions 4")
	require.Contains(t, body, "model_train_duration_ms_count")
}
