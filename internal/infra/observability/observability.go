// Package observability holds the Prometheus metrics for the ledger core
// and the reward surfaces. The API server exposes them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// TransactionsRecorded counts ledger rows by category and status.
var TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Total ledger transactions recorded, by category and status.",
}, []string{"category", "status"})

// BlockHeight tracks the current global block number.
var BlockHeight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "block_height",
	Help:      "Current ledger block height (global transaction sequence).",
})

// CreditsEarned counts credits added to user balances.
var CreditsEarned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "credits_earned_total",
	Help:      "Total credits added to balances by confirmed transactions.",
})

// CreditsSpent counts credits removed from user balances.
var CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "credits_spent_total",
	Help:      "Total credits removed from balances by confirmed transactions.",
})

// InsufficientFunds counts debits rejected by the balance floor.
var InsufficientFunds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "insufficient_funds_total",
	Help:      "Total debits rejected because the balance was too low.",
})

// PendingExpired counts pending entries swept to failed.
var PendingExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "ledger",
	Name:      "pending_expired_total",
	Help:      "Total pending transactions failed by the expiry sweep.",
})

// ─── Rewards Metrics ────────────────────────────────────────────────────────

// Redemptions counts successful voucher redemptions.
var Redemptions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "rewards",
	Name:      "redemptions_total",
	Help:      "Total successful voucher redemptions.",
})

// RedemptionRejections counts rejected redemptions by reason.
var RedemptionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "rewards",
	Name:      "redemption_rejections_total",
	Help:      "Total rejected voucher redemptions, by precondition.",
}, []string{"reason"})

// CatalogCacheHits counts voucher catalog cache hits and misses.
var CatalogCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "rewards",
	Name:      "catalog_cache_total",
	Help:      "Voucher catalog cache lookups, by outcome.",
}, []string{"outcome"})

// ─── Task Metrics ───────────────────────────────────────────────────────────

// TasksCompleted counts tasks whose progress crossed the target.
var TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "tasks",
	Name:      "completed_total",
	Help:      "Total tasks completed.",
})

// ─── Evidence Metrics ───────────────────────────────────────────────────────

// EvidenceSubmitted counts evidence submissions by outcome.
var EvidenceSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "evidence",
	Name:      "submitted_total",
	Help:      "Total evidence submissions, by outcome.",
}, []string{"outcome"})

// ─── API Metrics ────────────────────────────────────────────────────────────

// RequestsRejectedByRateLimit counts requests dropped by the limiter.
var RequestsRejectedByRateLimit = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "greenloop",
	Subsystem: "api",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected by the per-token rate limiter.",
})
