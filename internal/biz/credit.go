package biz

import (
	"context"
	"time"
)

// CreditStrategy 额度扣减策略契约
// 由缓存策略（快路径，最终一致）与数据库策略（慢路径，强一致）分别实现，
// 通过 CreditStrategyFactory 按配置选择
type CreditStrategy interface {
	// HasCredits 检查余额是否足够，余额未知（缓存缺失）时返回 false
	HasCredits(ctx context.Context, subscriptionID string, amount int64) (bool, error)
	// GetCurrentCredits 返回当前余额，缺失时返回 constants.CreditNotFound
	GetCurrentCredits(ctx context.Context, subscriptionID string) (int64, error)
	// CheckAndDecrement 原子检查并扣减；余额不足不是错误，返回 Success=false
	CheckAndDecrement(ctx context.Context, subscriptionID string, amount int64, notificationID string) (*CreditDecrement, error)
	// InitializeCredits 无条件设置余额（从事实源预热时使用），不触碰待落库队列
	InitializeCredits(ctx context.Context, subscriptionID string, credits int64) error
	// RollbackCredit 无条件增加余额，用于下游动作失败后的补偿性调整
	RollbackCredit(ctx context.Context, subscriptionID string, amount int64, trackingID string) error
}

// CreditDecrement 扣减结果
type CreditDecrement struct {
	Success    bool
	Remaining  int64
	TrackingID string
}

// PendingCreditUsage 待落库用量记录（缓存驻留，落库后删除）
type PendingCreditUsage struct {
	TrackingID     string    `json:"tracking_id"`
	SubscriptionID string    `json:"subscription_id"`
	UsedCredits    int64     `json:"used_credits"`
	UsedAt         time.Time `json:"used_at"`
	NotificationID string    `json:"notification_id,omitempty"`
	Description    string    `json:"description,omitempty"`
}

// CreditUsage 用量流水领域对象（持久账本）
type CreditUsage struct {
	ID             string
	SubscriptionID string
	UsedCredits    int64
	UsedAt         time.Time
	NotificationID string
	BatchID        string
	Description    string
	CreatedAt      time.Time
}

// Subscription 订阅领域对象
// RemainingCredits 为 nil 表示未开通额度计费
type Subscription struct {
	ID               string
	PartnerID        string
	Status           string
	RemainingCredits *int64
	UpdatedAt        time.Time
}

// CreditCacheRepo 余额缓存数据层接口（定义在 biz 层）
type CreditCacheRepo interface {
	// GetCredits 返回缓存余额，key 缺失时返回 constants.CreditNotFound
	GetCredits(ctx context.Context, subscriptionID string) (int64, error)
	SetCredits(ctx context.Context, subscriptionID string, credits int64) error
	// SetCreditsIfAbsent 仅当 key 不存在时写入，返回是否写入
	SetCreditsIfAbsent(ctx context.Context, subscriptionID string, credits int64) (bool, error)
	IncrCredits(ctx context.Context, subscriptionID string, amount int64) (int64, error)
	// CheckAndDecrement 服务端脚本原子执行"检查并扣减"，
	// 成功返回扣减后余额，缓存缺失或余额不足返回 constants.CreditNotFound
	CheckAndDecrement(ctx context.Context, subscriptionID string, amount int64) (int64, error)
}

// PendingLedgerRepo 待落库队列数据层接口
type PendingLedgerRepo interface {
	// SavePending 先写记录再写索引；两步之间崩溃只会留下无索引的记录
	SavePending(ctx context.Context, record *PendingCreditUsage) error
	// GetPendingBatch 从索引取最多 limit 条记录，缺失/损坏的记录跳过并记日志
	GetPendingBatch(ctx context.Context, limit int) ([]*PendingCreditUsage, error)
	// RemovePendingBatch 仅在对应流水持久化之后调用
	RemovePendingBatch(ctx context.Context, trackingIDs []string) error
	GetPendingCount(ctx context.Context) (int64, error)
}

// CreditUsageRepo 用量流水数据层接口
type CreditUsageRepo interface {
	// FlushBatch 在单个事务内：跳过已存在的 trackingId，为其余记录各写一行流水
	// （共享 batchID），并按订阅聚合扣减事实源余额。返回实际插入的行数。
	FlushBatch(ctx context.Context, batchID string, records []*PendingCreditUsage) (int, error)
	// Create 直连数据库策略的单条流水写入
	Create(ctx context.Context, usage *CreditUsage) error
}

// SubscriptionRepo 订阅数据层接口（系统事实源）
type SubscriptionRepo interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ListActiveWithCredits 返回所有 remaining_credits 非 NULL 的活跃订阅
	ListActiveWithCredits(ctx context.Context) ([]*Subscription, error)
	// DecrementIfEnough 条件扣减（remaining_credits >= amount 时生效），
	// 返回扣减后余额与是否扣减成功
	DecrementIfEnough(ctx context.Context, subscriptionID string, amount int64) (int64, bool, error)
	// AddCredits 无条件增加余额（直连策略的回滚路径）
	AddCredits(ctx context.Context, subscriptionID string, amount int64) (int64, error)
	// SetRemainingCredits 无条件覆盖余额
	SetRemainingCredits(ctx context.Context, subscriptionID string, credits int64) error
}
