package camconfig

import "github.com/prometheus/client_golang/prometheus"

var (
	// ChangeRequestsTotal counts admission decisions by outcome:
	// accepted, noop, invalid, rejected
	ChangeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camconfig_change_requests_total",
			Help: "Camera configuration change requests by admission outcome.",
		},
		[]string{"outcome"},
	)

	// ApplyTotal counts finished apply procedures: applied, aborted, failed
	ApplyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camconfig_apply_total",
			Help: "Camera configuration apply procedures by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ChangeRequestsTotal)
	prometheus.MustRegister(ApplyTotal)
}
