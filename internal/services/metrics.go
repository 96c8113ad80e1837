package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 投票与校准相关的计数器。
type Metrics struct {
	VoteOutcomes    *prometheus.CounterVec
	VoteRetries     prometheus.Counter
	VoteFailures    *prometheus.CounterVec
	ReconcileRuns   *prometheus.CounterVec
	CountersRepairs prometheus.Counter
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时用一个私有 registry（测试用）。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		VoteOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alumnilink",
			Subsystem: "votes",
			Name:      "outcomes_total",
			Help:      "Applied votes by type and outcome.",
		}, []string{"type", "outcome"}),
		VoteRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "alumnilink",
			Subsystem: "votes",
			Name:      "conflict_retries_total",
			Help:      "Vote attempts retried after a ledger conflict.",
		}),
		VoteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alumnilink",
			Subsystem: "votes",
			Name:      "failures_total",
			Help:      "Votes that returned an error, by reason.",
		}, []string{"reason"}),
		ReconcileRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alumnilink",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Counter reconciliation passes by trigger.",
		}, []string{"trigger"}),
		CountersRepairs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "alumnilink",
			Subsystem: "reconcile",
			Name:      "repaired_comments_total",
			Help:      "Comments whose counters differed from the ledger.",
		}),
	}
}
