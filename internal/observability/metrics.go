// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Staking metrics
	StakesTotal          prometheus.Counter
	UnstakesTotal        prometheus.Counter
	ClaimsTotal          prometheus.Counter
	InstantUnstakesTotal *prometheus.CounterVec
	StakingErrors        *prometheus.CounterVec
	StakedVolume         prometheus.Counter
	UnstakedVolume       prometheus.Counter

	// Epoch metrics
	CurrentEpoch      prometheus.Gauge
	RebasesTotal      prometheus.Counter
	RebaseProfit      prometheus.Counter
	PendingRewards    prometheus.Gauge
	SecondsToEpochEnd prometheus.Gauge

	// Lock metrics
	WarmupLocks   prometheus.Gauge
	CooldownLocks prometheus.Gauge

	// Withdrawal metrics
	WithdrawalBatchesSent   prometheus.Counter
	WithdrawalObligation    prometheus.Gauge
	PoolCycleIndex          prometheus.Gauge
	WithdrawalRequestErrors prometheus.Counter

	// Reserve metrics
	ReserveBacking     prometheus.Gauge
	ReserveTotalShares prometheus.Gauge

	// Scheduler metrics
	JobRunsTotal *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSClientsConnected  prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRebase   prometheus.Gauge
	LastSuccessfulSnapshot prometheus.Gauge
	UptimeSeconds          prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "staking_vault_lab"
	}

	return &Metrics{
		// Staking metrics
		StakesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "stakes_total",
			Help:      "Total number of successful stake operations",
		}),
		UnstakesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "unstakes_total",
			Help:      "Total number of successful unstake operations",
		}),
		ClaimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "claims_total",
			Help:      "Total number of successful claim operations",
		}),
		InstantUnstakesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "instant_unstakes_total",
			Help:      "Total number of instant unstakes by route",
		}, []string{"route"}),
		StakingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "errors_total",
			Help:      "Total number of failed operations by operation and error type",
		}, []string{"operation", "error_type"}),
		StakedVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "staked_volume_total",
			Help:      "Cumulative amount of underlying staked",
		}),
		UnstakedVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "unstaked_volume_total",
			Help:      "Cumulative amount of receipt tokens unstaked",
		}),

		// Epoch metrics
		CurrentEpoch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "epoch",
			Name:      "current_number",
			Help:      "Current epoch number",
		}),
		RebasesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "epoch",
			Name:      "rebases_total",
			Help:      "Total number of rebases applied",
		}),
		RebaseProfit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "epoch",
			Name:      "rebase_profit_total",
			Help:      "Cumulative profit distributed through rebases",
		}),
		PendingRewards: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "epoch",
			Name:      "pending_rewards",
			Help:      "Rewards queued for distribution at a future epoch boundary",
		}),
		SecondsToEpochEnd: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "epoch",
			Name:      "seconds_to_end",
			Help:      "Seconds remaining until the current epoch ends",
		}),

		// Lock metrics
		WarmupLocks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "warmup_active",
			Help:      "Number of holders with an active warm-up lock",
		}),
		CooldownLocks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "cooldown_active",
			Help:      "Number of holders with an active cool-down lock",
		}),

		// Withdrawal metrics
		WithdrawalBatchesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "batches_sent_total",
			Help:      "Total number of withdrawal batches sent to the yield pool",
		}),
		WithdrawalObligation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "obligation",
			Help:      "Outstanding cool-down obligation owed to holders",
		}),
		PoolCycleIndex: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "pool_cycle_index",
			Help:      "Last yield pool cycle index a batch was sent for",
		}),
		WithdrawalRequestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "request_errors_total",
			Help:      "Total number of failed withdrawal request submissions",
		}),

		// Reserve metrics
		ReserveBacking: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "backing",
			Help:      "Total underlying value backing the liquidity reserve",
		}),
		ReserveTotalShares: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "total_shares",
			Help:      "Total liquidity reserve shares outstanding",
		}),

		// Scheduler metrics
		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),

		// HTTP metrics
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "ws_clients_connected",
			Help:      "Number of connected WebSocket event subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRebase: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_rebase_timestamp",
			Help:      "Unix timestamp of the last applied rebase",
		}),
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of the last persisted state snapshot",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStake increments the stake counter.
func RecordStake() {
	DefaultMetrics.StakesTotal.Inc()
}

// RecordUnstake increments the unstake counter.
func RecordUnstake() {
	DefaultMetrics.UnstakesTotal.Inc()
}

// RecordClaim increments the claim counter.
func RecordClaim() {
	DefaultMetrics.ClaimsTotal.Inc()
}

// RecordInstantUnstake records an instant unstake by route ("reserve" or "curve").
func RecordInstantUnstake(route string) {
	DefaultMetrics.InstantUnstakesTotal.WithLabelValues(route).Inc()
}

// RecordStakingError records a failed operation.
func RecordStakingError(operation, errorType string) {
	DefaultMetrics.StakingErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordRebase records an applied rebase.
func RecordRebase(epoch uint64, profit float64) {
	DefaultMetrics.RebasesTotal.Inc()
	DefaultMetrics.RebaseProfit.Add(profit)
	DefaultMetrics.CurrentEpoch.Set(float64(epoch))
}

// RecordWithdrawalBatch records a withdrawal batch sent to the pool.
func RecordWithdrawalBatch(cycleIndex uint64) {
	DefaultMetrics.WithdrawalBatchesSent.Inc()
	DefaultMetrics.PoolCycleIndex.Set(float64(cycleIndex))
}

// UpdateLockCounts updates the active lock gauges.
func UpdateLockCounts(warmups, cooldowns int) {
	DefaultMetrics.WarmupLocks.Set(float64(warmups))
	DefaultMetrics.CooldownLocks.Set(float64(cooldowns))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, status string, durationSeconds float64) {
	DefaultMetrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(durationSeconds)
}
