package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "workflow_transitions_total", Help: "Number of successful lifecycle transitions by workflow and target status."},
		[]string{"workflow", "status"},
	)
	TransitionsRefused = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "workflow_transitions_refused_total", Help: "Number of refused lifecycle transitions by workflow and error kind."},
		[]string{"workflow", "kind"},
	)
	SideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "side_effect_failures_total", Help: "Number of failed best-effort side effects (notification, audit, revalidation)."},
		[]string{"effect"},
	)
	VideoProgressWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staffportal", Name: "video_progress_ticks_total", Help: "Video progress ticks by outcome (persisted or debounced)."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Transitions)
	reg.MustRegister(TransitionsRefused)
	reg.MustRegister(SideEffectFailures)
	reg.MustRegister(VideoProgressWrites)
}
