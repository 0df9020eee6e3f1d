package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nok",
		Subsystem: "session",
		Name:      "accounts_created_total",
		Help:      "Accounts created or loaded through create-or-get.",
	})
	keystoreWipes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nok",
		Subsystem: "session",
		Name:      "keystore_wipes_total",
		Help:      "Keystores deleted after a failed account creation.",
	})
	operationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nok",
		Subsystem: "session",
		Name:      "operation_failures_total",
		Help:      "Failed session operations by name.",
	}, []string{"op"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nok",
		Subsystem: "session",
		Name:      "queue_depth",
		Help:      "Operations waiting for the session worker.",
	})
)
