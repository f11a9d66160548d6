package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Total reservation operations by outcome",
		},
		[]string{"operation", "status"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Total payment webhook deliveries processed",
		},
		[]string{"type", "status"},
	)

	expiredHolds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expired_holds_total",
			Help: "Total pending holds failed by the expiry sweep",
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_ins_total",
			Help: "Total check-in attempts by outcome",
		},
		[]string{"status"},
	)
)

func TrackReservation(operation, status string) {
	reservationOps.WithLabelValues(operation, status).Inc()
}

func TrackWebhookEvent(eventType, status string) {
	webhookEvents.WithLabelValues(eventType, status).Inc()
}

func TrackExpiredHolds(n int) {
	expiredHolds.Add(float64(n))
}

func TrackCheckIn(status string) {
	checkIns.WithLabelValues(status).Inc()
}
