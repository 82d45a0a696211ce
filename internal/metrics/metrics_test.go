package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCompletion(t *testing.T) {
	beforeTx := testutil.ToFloat64(transactionsCompleted)
	beforePoints := testutil.ToFloat64(pointsAwarded.WithLabelValues("completion"))

	RecordCompletion(15, 25)

	assert.Equal(t, beforeTx+1, testutil.ToFloat64(transactionsCompleted))
	assert.Equal(t, beforePoints+40, testutil.ToFloat64(pointsAwarded.WithLabelValues("completion")))
}

func TestRecordPointsAdjustmentIgnoresDebits(t *testing.T) {
	before := testutil.ToFloat64(pointsAwarded.WithLabelValues("manual"))

	RecordPointsAdjustment(-10)
	RecordPointsAdjustment(7)

	assert.Equal(t, before+7, testutil.ToFloat64(pointsAwarded.WithLabelValues("manual")))
}

func TestRecordRequestsExpired(t *testing.T) {
	before := testutil.ToFloat64(requestsExpired)
	RecordRequestsExpired(0)
	RecordRequestsExpired(3)
	assert.Equal(t, before+3, testutil.ToFloat64(requestsExpired))
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/things/{id}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
	}
	assert.Equal(t, before+3, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/things/{id}", "418")))
}
