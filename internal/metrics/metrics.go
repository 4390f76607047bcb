package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session authority counters, exposed via promhttp on the health server.
var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Number of sessions created by login.",
	})

	SessionValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_validations_total",
		Help: "Validation verdicts by result code.",
	}, []string{"result"})

	SessionsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_revoked_total",
		Help: "Sessions purged, by reason.",
	}, []string{"reason"})

	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_reaped_total",
		Help: "Expired session rows reclaimed by the background sweep.",
	})
)
