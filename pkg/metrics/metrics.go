package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProtocolsRegistered counts protocol registrations.
var ProtocolsRegistered = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coverlane_protocols_registered_total",
		Help: "Total number of protocols registered",
	},
)

// RiskUpdates counts risk score recomputations.
var RiskUpdates = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coverlane_risk_updates_total",
		Help: "Total number of protocol risk score updates",
	},
)

// PoliciesCreated counts issued policies.
var PoliciesCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coverlane_policies_created_total",
		Help: "Total number of insurance policies issued",
	},
)

// ClaimsSubmitted counts submitted claims.
var ClaimsSubmitted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "coverlane_claims_submitted_total",
		Help: "Total number of claims submitted",
	},
)

// ClaimsResolved counts resolved claims by outcome (approved/rejected).
var ClaimsResolved = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coverlane_claims_resolved_total",
		Help: "Total number of claims resolved by outcome",
	},
	[]string{"outcome"},
)

// Capital pool balance gauges, labelled by pool tier.
var (
	PoolTotalCapital = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coverlane_pool_total_capital",
			Help: "Total underwriting capital per pool tier",
		},
		[]string{"tier"},
	)

	PoolAvailableCapital = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coverlane_pool_available_capital",
			Help: "Available underwriting capital per pool tier",
		},
		[]string{"tier"},
	)
)

// AlertsCreated counts exploit alerts by anomaly type.
var AlertsCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coverlane_exploit_alerts_total",
		Help: "Total number of exploit alerts recorded by anomaly type",
	},
	[]string{"anomaly"},
)

func init() {
	prometheus.MustRegister(ProtocolsRegistered, RiskUpdates, PoliciesCreated)
	prometheus.MustRegister(ClaimsSubmitted, ClaimsResolved)
	prometheus.MustRegister(PoolTotalCapital, PoolAvailableCapital, AlertsCreated)
}
