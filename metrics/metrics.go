// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "access_decisions_total",
		Help:      "Feature access decisions by feature and outcome.",
	}, []string{"feature", "outcome"})

	LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "ledger_operations_total",
		Help:      "Credit ledger operations by kind and outcome.",
	}, []string{"kind", "outcome"})

	CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "credits_moved_total",
		Help:      "Credits debited or credited.",
	}, []string{"kind"})

	XPAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "xp_awarded_total",
		Help:      "XP awarded after multipliers.",
	})

	BadgeUnlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "badge_unlocks_total",
		Help:      "Badges unlocked by badge id.",
	}, []string{"badge"})

	Prestiges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "prestiges_total",
		Help:      "Prestige ranks reached.",
	}, []string{"rank"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentgift",
		Name:      "account_cache_lookups_total",
		Help:      "Account cache lookups by result.",
	}, []string{"result"})
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeError  = "error"
)
