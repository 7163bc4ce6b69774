package constants

// 扣减策略模式常量
const (
	// ModeRedisBatch Redis 缓存扣减 + 批量落库
	ModeRedisBatch = "redis_batch"
	// ModeDirectDB 直接数据库扣减
	ModeDirectDB = "direct_db"
)

// Redis Key 前缀常量（可通过配置覆盖）
const (
	// RedisKeyCredit 余额缓存 key 前缀
	RedisKeyCredit = "credit:balance:"
	// RedisKeyPending 待落库用量记录 key 前缀
	RedisKeyPending = "credit:pending:"
	// RedisKeyPendingIndexSuffix 拼接在 pending 前缀后，构成 id 索引集合 key
	RedisKeyPendingIndexSuffix = "ids"
	// RedisKeySyncLock 同步调度器分布式锁名称
	RedisKeySyncLock = "credit:sync:lock"
)

// CreditNotFound 余额缓存缺失或不足时的哨兵值
const CreditNotFound int64 = -1

// 同步默认值
const (
	// DefaultSyncBatchSize 单批次拉取的待落库记录数
	DefaultSyncBatchSize = 100
	// DefaultSyncRetryCount 单个同步周期内的最大重试次数
	DefaultSyncRetryCount = 3
)

// 锁结果常量（用于指标）
const (
	LockResultAcquired = "acquired"
	LockResultBusy     = "busy"
	LockResultError    = "error"
)

// 操作结果常量（用于指标）
const (
	ResultSuccess      = "success"
	ResultFailed       = "failed"
	ResultInsufficient = "insufficient"
)

// 统计周期常量
const (
	// StatsPeriodToday 今日
	StatsPeriodToday = "today"
	// StatsPeriodMonth 本月
	StatsPeriodMonth = "month"
)
