package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCoinsAwarded(t *testing.T) {
	before := testutil.ToFloat64(coinsAwarded.WithLabelValues("deposit"))

	RecordCoinsAwarded("deposit", 40)
	RecordCoinsAwarded("deposit", 0)
	RecordCoinsAwarded("deposit", -5)

	assert.Equal(t, before+40, testutil.ToFloat64(coinsAwarded.WithLabelValues("deposit")))
}

func TestRecordRedemption(t *testing.T) {
	before := testutil.ToFloat64(redemptions.WithLabelValues("insufficient_balance"))

	RecordRedemption("insufficient_balance")
	RecordRedemption("insufficient_balance")

	assert.Equal(t, before+2, testutil.ToFloat64(redemptions.WithLabelValues("insufficient_balance")))
}

func TestInstrumentHandler_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequests.WithLabelValues("GET", "/users/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
