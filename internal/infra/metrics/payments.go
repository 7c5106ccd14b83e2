package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsCreatedTotal,
		paymentsSettledTotal,
		paymentsFraudTotal,
		notificationsRejectedTotal,
		notificationsUnhandledTotal,
		paymentsRevenueCents,
	)
}

var (
	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Charge attempts created, labeled by kind (classic/recurring).",
		},
		[]string{"kind"},
	)

	paymentsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Ledger settlements by terminal status.",
		},
		[]string{"status"},
	)

	paymentsFraudTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_fraud_suspected_total",
			Help: "Notifications whose correlation token did not match the ledger.",
		},
	)

	notificationsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_notifications_rejected_total",
			Help: "Gateway notifications rejected before reconciliation (bad signature or shape).",
		},
	)

	notificationsUnhandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifications_unhandled_total",
			Help: "Notifications observed but not applied, labeled by kind (refund/unknown/replay).",
		},
		[]string{"kind"},
	)

	paymentsRevenueCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_cents_total",
			Help: "Total settled revenue in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPaymentCreated(kind string) {
	paymentsCreatedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncPaymentSettled(status string) {
	paymentsSettledTotal.WithLabelValues(norm(status)).Inc()
}

func IncFraudSuspected() { paymentsFraudTotal.Inc() }

func IncNotificationRejected() { notificationsRejectedTotal.Inc() }

func IncNotificationUnhandled(kind string) {
	notificationsUnhandledTotal.WithLabelValues(norm(kind)).Inc()
}

func AddRevenue(currency string, amountMinor int64) {
	paymentsRevenueCents.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}
