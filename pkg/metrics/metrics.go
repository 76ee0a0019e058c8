package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	LedgerScans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dao_ledger",
		Name:      "ledger_scans_total",
		Help:      "Ledger balance scans by result (found, default, timeout).",
	}, []string{"result"})

	PaginationRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dao_ledger",
		Name:      "ledger_pagination_rounds",
		Help:      "Backward pagination rounds used per scan.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})

	PaginationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dao_ledger",
		Name:      "ledger_pagination_failures_total",
		Help:      "Backward pagination requests that failed.",
	})

	AppendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dao_ledger",
		Name:      "ledger_append_failures_total",
		Help:      "Ledger records that could not be appended.",
	}, []string{"kind"})

	AwardOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dao_ledger",
		Name:      "contribution_awards_total",
		Help:      "Contribution verification outcomes by stage and status.",
	}, []string{"stage", "status"})

	ListenerPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dao_ledger",
		Name:      "wallet_listener_panics_total",
		Help:      "Wallet change listeners that panicked.",
	})

	WalletsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dao_ledger",
		Name:      "wallets",
		Help:      "Wallets held in the local store.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LedgerScans,
		PaginationRounds,
		PaginationFailures,
		AppendFailures,
		AwardOutcomes,
		ListenerPanics,
		WalletsGauge,
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
