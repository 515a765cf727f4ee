// Package metrics provides Prometheus metrics for lingoleap.
// Counters, gauges and histograms for the progression economy: lessons,
// XP, gems, hearts, streaks and achievements.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Lessons ────────────────────────────────────────────────────────────────

// LessonsCompleted counts accepted completions by language and whether the
// lesson was already complete ("first" or "repeat").
var LessonsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "lessons_completed_total",
	Help:      "Total lesson completion events.",
}, []string{"language", "kind"})

// CompletionFailures counts aborted completions by error kind.
var CompletionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "completion_failures_total",
	Help:      "Total lesson completions that were rejected or rolled back.",
}, []string{"kind"})

// CompletionLatency tracks the duration of the completion transaction.
var CompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lingoleap",
	Name:      "completion_latency_seconds",
	Help:      "Lesson completion transaction duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

// ─── Economy ────────────────────────────────────────────────────────────────

// XPAwarded tracks XP granted by source (lesson, achievement).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"source"})

// GemsAwarded tracks gems granted by ledger source.
var GemsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "gems_awarded_total",
	Help:      "Total gems awarded.",
}, []string{"source"})

// GemsSpent tracks gems spent by ledger source.
var GemsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "gems_spent_total",
	Help:      "Total gems spent.",
}, []string{"source"})

// LevelUps counts level transitions caused by lesson XP.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "level_ups_total",
	Help:      "Total level-up events.",
})

// ─── Hearts ─────────────────────────────────────────────────────────────────

// HeartsLost counts hearts spent on wrong answers.
var HeartsLost = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "hearts_lost_total",
	Help:      "Total hearts lost.",
})

// HeartsRegenerated counts hearts restored by the regeneration timer.
var HeartsRegenerated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "hearts_regenerated_total",
	Help:      "Total hearts regenerated over time.",
})

// HeartRefills counts shop refills.
var HeartRefills = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "heart_refills_total",
	Help:      "Total hearts refilled with gems.",
})

// ─── Streaks & Achievements ─────────────────────────────────────────────────

// StreakTransitions counts active streak updates by transition name.
var StreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "streak_transitions_total",
	Help:      "Total streak transitions applied on completion.",
}, []string{"transition"})

// StreakResets counts streaks zeroed by the passive check.
var StreakResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "streak_resets_total",
	Help:      "Total streaks reset after a missed day.",
})

// AchievementsUnlocked counts achievements earned by key.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"key"})

// ─── Accounts & Maintenance ─────────────────────────────────────────────────

// Signups counts created accounts.
var Signups = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "signups_total",
	Help:      "Total accounts created.",
})

// RegisteredUsers tracks the number of accounts at the last sweep.
var RegisteredUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "lingoleap",
	Name:      "registered_users",
	Help:      "Number of registered accounts.",
})

// SweepDuration tracks the nightly passive-check sweep.
var SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "lingoleap",
	Name:      "sweep_duration_seconds",
	Help:      "Duration of the daily streak sweep.",
	Buckets:   prometheus.DefBuckets,
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "http_requests_total",
	Help:      "Total HTTP requests.",
}, []string{"route", "code"})

// HealthStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "lingoleap",
	Name:      "health_status",
	Help:      "Health check status (1=healthy, 0=unhealthy).",
}, []string{"check"})

// BreakerState is the circuit breaker state (0=closed, 1=open, 2=half-open).
var BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "lingoleap",
	Name:      "breaker_state",
	Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
}, []string{"breaker"})

// BreakerTrips counts transitions into the open state.
var BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lingoleap",
	Name:      "breaker_trips_total",
	Help:      "Times a circuit breaker opened.",
}, []string{"breaker"})
