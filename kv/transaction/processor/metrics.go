package processor

import "github.com/prometheus/client_golang/prometheus"

var (
	txnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinytxn",
			Subsystem: "processor",
			Name:      "txn_total",
			Help:      "Counter of finished transaction attempts by outcome.",
		}, []string{"mode", "result"})

	parkedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinytxn",
			Subsystem: "processor",
			Name:      "parked_total",
			Help:      "Counter of transactions parked in the lock manager.",
		}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(txnCounter)
	prometheus.MustRegister(parkedCounter)
}
