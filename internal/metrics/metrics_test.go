package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

func TestRecordUpload(t *testing.T) {
	m := NewNop()
	m.RecordUpload(OutcomeOK, 20*time.Millisecond, bom.Stats{
		Tiers:       bom.TierCounts{High: 3, Medium: 1, None: 2},
		ParseErrors: 4,
	})
	m.RecordUpload(OutcomeRejected, 0, bom.Stats{Tiers: bom.TierCounts{High: 100}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("high")), "rejected uploads add no rows")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("none")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ParseErrorsTotal))
}

func TestRecordTransitionAndCatalog(t *testing.T) {
	m := NewNop()
	m.RecordTransition("accept")
	m.RecordTransition("accept")
	m.RecordCatalogLoad(42, nil)
	m.RecordCatalogLoad(0, errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("accept")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CatalogProducts), "a failed load keeps the last size")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoads.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	m := NewNop()
	m.SessionsActive.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "bomquote_sessions_active 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
