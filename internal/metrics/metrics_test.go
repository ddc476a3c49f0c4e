package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrder(t *testing.T) {
	before := testutil.ToFloat64(OrdersSettled.WithLabelValues(OutcomeSettled))
	RecordOrder(OutcomeSettled)
	after := testutil.ToFloat64(OrdersSettled.WithLabelValues(OutcomeSettled))

	assert.Equal(t, before+1, after)
}

func TestRecordBills_SkipsZero(t *testing.T) {
	before := testutil.ToFloat64(BillsDispensed.WithLabelValues("500"))
	RecordBills(500, 0)
	RecordBills(500, 2)
	after := testutil.ToFloat64(BillsDispensed.WithLabelValues("500"))

	assert.Equal(t, before+2, after)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/api/coffees", http.StatusOK, 10*time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "coffee_machine_http_requests_total"))
}
