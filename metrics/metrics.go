// Package metrics exposes the session's operational counters in Prometheus
// text format. The listener is opt-in; with no configured address nothing is
// served and the counters are just cheap in-process state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Orders counts submissions by side and outcome
	// (ok|rate_limited|rejected|error).
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daytrader_orders_total",
			Help: "Order submissions by side and outcome",
		},
		[]string{"side", "outcome"},
	)

	// EntrySkips counts buy attempts that ended without a submission.
	EntrySkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daytrader_entry_skips_total",
			Help: "Buy attempts skipped before submission",
		},
		[]string{"reason"},
	)

	// Phase tracks the current session phase as its enum value.
	Phase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daytrader_session_phase",
			Help: "Current session phase (0=pre-open ... 4=closed)",
		},
	)

	// PositionsHeld tracks total held quantity across instruments.
	PositionsHeld = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "daytrader_positions_held_quantity",
			Help: "Total held quantity across all positions",
		},
	)

	// BackoffSeconds accumulates time spent sleeping on the venue's
	// continuous-order frequency guard.
	BackoffSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daytrader_rate_limit_backoff_seconds_total",
			Help: "Seconds spent blocked on rate-limit cooldowns",
		},
	)

	// SweepPasses counts full liquidation sweep passes.
	SweepPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "daytrader_liquidation_sweep_passes_total",
			Help: "Completed sell-all sweep passes",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Orders,
		EntrySkips,
		Phase,
		PositionsHeld,
		BackoffSeconds,
		SweepPasses,
	)
}

// Serve starts the /metrics listener on addr. It blocks, so callers run it
// in a goroutine; errors surface on the returned channel.
func Serve(addr string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		errc <- http.ListenAndServe(addr, mux)
	}()
	return errc
}
