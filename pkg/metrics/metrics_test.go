package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	before := testutil.ToFloat64(AppendFailures.WithLabelValues("mint"))
	AppendFailures.WithLabelValues("mint").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AppendFailures.WithLabelValues("mint")))

	AwardOutcomes.WithLabelValues("crediting", "credited").Inc()
	WalletsGauge.Set(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dao_ledger_ledger_append_failures_total")
	assert.Contains(t, body, "dao_ledger_contribution_awards_total")
	assert.Contains(t, body, "dao_ledger_wallets 3")
}
