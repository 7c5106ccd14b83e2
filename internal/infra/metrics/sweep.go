package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(sweepRunsTotal, cardsExpiredTotal, accreditationsLapsedTotal, renewalsAttemptedTotal)
}

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Sweep executions, labeled by outcome (ok/error/locked).",
		},
		[]string{"outcome"},
	)

	cardsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_cards_expired_total",
			Help: "Vault cards marked unavailable by the expiry sweep.",
		},
	)

	accreditationsLapsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_accreditations_lapsed_total",
			Help: "Paying members downgraded after their access expired.",
		},
	)

	renewalsAttemptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_renewals_attempted_total",
			Help: "Recurring charge attempts initiated by the sweep.",
		},
	)
)

func IncSweepRun(outcome string)    { sweepRunsTotal.WithLabelValues(norm(outcome)).Inc() }
func AddCardsExpired(n int64)       { cardsExpiredTotal.Add(float64(n)) }
func AddAccreditationsLapsed(n int64) { accreditationsLapsedTotal.Add(float64(n)) }
func IncRenewalAttempted()          { renewalsAttemptedTotal.Inc() }
