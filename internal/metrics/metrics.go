package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CreditMetrics 额度服务指标
type CreditMetrics struct {
	// 扣减相关指标
	DecrementTotal    *prometheus.CounterVec   // 扣减总数（按模式、结果）
	DecrementDuration *prometheus.HistogramVec // 扣减耗时（按模式）
	RollbackTotal     prometheus.Counter       // 回滚总数
	CreditCheckTotal  *prometheus.CounterVec   // 余额检查总数（按结果）

	// 待落库队列指标
	PendingCount prometheus.Gauge // 待落库记录数

	// 批量同步指标
	SyncCycleTotal    *prometheus.CounterVec // 同步周期总数（按结果）
	SyncCycleDuration prometheus.Histogram   // 同步周期耗时
	SyncRecordsTotal  prometheus.Counter     // 已落库记录总数
	SyncRetryTotal    prometheus.Counter     // 批次重试总数

	// 恢复相关指标
	SeedTotal *prometheus.CounterVec // 缓存预热总数（按结果）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewCreditMetrics 创建额度服务指标
func NewCreditMetrics() *CreditMetrics {
	return &CreditMetrics{
		DecrementTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_decrement_total",
				Help: "Total number of check-and-decrement operations",
			},
			[]string{"mode", "result"}, // result: success/insufficient/failed
		),
		DecrementDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_decrement_duration_seconds",
				Help:    "Duration of check-and-decrement operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		RollbackTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_rollback_total",
				Help: "Total number of credit rollbacks",
			},
		),
		CreditCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_check_total",
				Help: "Total number of credit checks",
			},
			[]string{"result"}, // result: success/insufficient/failed
		),

		PendingCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "credit_pending_count",
				Help: "Number of usage records awaiting batch flush",
			},
		),

		SyncCycleTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_sync_cycle_total",
				Help: "Total number of sync cycles",
			},
			[]string{"result"}, // result: success/failed
		),
		SyncCycleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_sync_cycle_duration_seconds",
				Help:    "Duration of sync cycles",
				Buckets: prometheus.DefBuckets,
			},
		),
		SyncRecordsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_sync_records_total",
				Help: "Total number of pending records flushed to the ledger",
			},
		),
		SyncRetryTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_sync_retry_total",
				Help: "Total number of batch flush retries",
			},
		),

		SeedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_seed_total",
				Help: "Total number of cache balance seeds",
			},
			[]string{"result"}, // result: success/failed
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_lock_acquire_total",
				Help: "Total number of sync lock acquisition attempts",
			},
			[]string{"result"}, // result: acquired/busy/error
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_lock_acquire_duration_seconds",
				Help:    "Duration of sync lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *CreditMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewCreditMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *CreditMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
