package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Role resolution metrics
var (
	// RoleResolutionsTotal tracks active role resolutions by source and outcome
	RoleResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "team_role_resolutions_total",
			Help: "Total number of active role resolutions by source",
		},
		[]string{"source", "role"}, // source: "explicit", "nested", "implicit", "none"
	)

	// AccessDecisionsTotal tracks access gate decisions
	AccessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "team_access_decisions_total",
			Help: "Total number of team access gate decisions",
		},
		[]string{"required_role", "decision"}, // decision: "allowed", "denied"
	)

	// TeamIDResolutionDuration tracks how long resolving a principal's
	// team-id set takes
	TeamIDResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "team_id_resolution_duration_seconds",
			Help:    "Team-id set resolution duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)
)

// Membership rebuild metrics
var (
	// MembershipRebuildsTotal tracks login-time membership cache rebuilds
	MembershipRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "team_membership_rebuilds_total",
			Help: "Total number of membership cache rebuilds by outcome",
		},
		[]string{"outcome"}, // outcome: "rebuilt", "skipped", "failed"
	)

	// MembershipRebuildDuration tracks rebuild duration
	MembershipRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "team_membership_rebuild_duration_seconds",
			Help:    "Membership cache rebuild duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// MembershipsRebuilt tracks memberships produced per rebuild
	MembershipsRebuilt = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "team_memberships_rebuilt",
			Help:    "Number of memberships produced per rebuild",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RateLimitRejections tracks requests rejected by the rate limiter
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// AuthFailuresTotal tracks rejected authentication attempts
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_auth_failures_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"reason"}, // reason: "missing", "invalid", "expired", "unknown_user"
	)
)

// Member operation metrics
var (
	// MemberOperationsTotal tracks add/update/remove member operations
	MemberOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "team_member_operations_total",
			Help: "Total number of team member operations by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "rejected", "error"
	)

	// LastAdminRejections tracks operations refused by the last-admin guard
	LastAdminRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "team_last_admin_rejections_total",
			Help: "Total number of operations refused to preserve the last admin",
		},
	)
)
