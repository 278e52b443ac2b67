package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerRecordsStatusAndRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")

	handler := RequestLogger(logger, func(*http.Request) string { return "/api/things/{id}" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/things/{id}", "401"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/things/{id}", "401"))
	require.InDelta(t, before+1, after, 0.0001)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warning", line["level"])
	require.Equal(t, "/api/things/42", line["path"])
	require.EqualValues(t, 401, line["status"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, "chatty", "text")
	require.Equal(t, "info", logger.GetLevel().String())
}

func TestRecordContentChangeIgnoresZero(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	RecordContentChange(ts)
	RecordContentChange(time.Time{})
	require.InDelta(t, float64(ts.Unix()), testutil.ToFloat64(contentChangeGauge), 0.5)
}
