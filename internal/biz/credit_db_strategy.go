package biz

import (
	"context"
	"time"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// DBCreditStrategy 直连数据库扣减策略（慢路径，强一致）
// 检查发生在数据库侧：条件 UPDATE 保证原子性，流水同步写入
type DBCreditStrategy struct {
	subs    SubscriptionRepo
	usage   CreditUsageRepo
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewDBCreditStrategy 创建直连数据库扣减策略
func NewDBCreditStrategy(subs SubscriptionRepo, usage CreditUsageRepo, logger log.Logger) *DBCreditStrategy {
	return &DBCreditStrategy{
		subs:    subs,
		usage:   usage,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// HasCredits 检查事实源余额是否足够
func (s *DBCreditStrategy) HasCredits(ctx context.Context, subscriptionID string, amount int64) (bool, error) {
	sub, err := s.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return false, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionGetFailed)
	}
	if sub == nil || sub.RemainingCredits == nil {
		return false, nil
	}
	return *sub.RemainingCredits >= amount, nil
}

// GetCurrentCredits 返回事实源余额，订阅不存在或未开通额度时返回哨兵值
func (s *DBCreditStrategy) GetCurrentCredits(ctx context.Context, subscriptionID string) (int64, error) {
	sub, err := s.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return constants.CreditNotFound, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionGetFailed)
	}
	if sub == nil || sub.RemainingCredits == nil {
		return constants.CreditNotFound, nil
	}
	return *sub.RemainingCredits, nil
}

// CheckAndDecrement 条件 UPDATE 扣减并同步写入流水
func (s *DBCreditStrategy) CheckAndDecrement(ctx context.Context, subscriptionID string, amount int64, notificationID string) (*CreditDecrement, error) {
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.DecrementDuration.WithLabelValues(constants.ModeDirectDB).Observe(time.Since(startTime).Seconds())
		}
	}()

	remaining, ok, err := s.subs.DecrementIfEnough(ctx, subscriptionID, amount)
	if err != nil {
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeDirectDB, constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionUpdateFailed)
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeDirectDB, constants.ResultInsufficient).Inc()
		}
		return &CreditDecrement{Success: false, Remaining: constants.CreditNotFound}, nil
	}

	trackingID := uuid.New().String()
	usage := &CreditUsage{
		ID:             trackingID,
		SubscriptionID: subscriptionID,
		UsedCredits:    amount,
		UsedAt:         time.Now(),
		NotificationID: notificationID,
		BatchID:        uuid.New().String(),
	}
	if err := s.usage.Create(ctx, usage); err != nil {
		// 余额已扣、流水写入失败：补偿余额并失败本次扣减
		if _, rbErr := s.subs.AddCredits(ctx, subscriptionID, amount); rbErr != nil {
			s.log.Errorf("failed to compensate db decrement after usage insert failure: subscription_id=%s, amount=%d, error=%v",
				subscriptionID, amount, rbErr)
		}
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeDirectDB, constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditUsageCreateFailed)
	}

	if s.metrics != nil {
		s.metrics.DecrementTotal.WithLabelValues(constants.ModeDirectDB, constants.ResultSuccess).Inc()
	}
	return &CreditDecrement{Success: true, Remaining: remaining, TrackingID: trackingID}, nil
}

// InitializeCredits 无条件覆盖事实源余额
func (s *DBCreditStrategy) InitializeCredits(ctx context.Context, subscriptionID string, credits int64) error {
	if err := s.subs.SetRemainingCredits(ctx, subscriptionID, credits); err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditInitFailed)
	}
	return nil
}

// RollbackCredit 补偿性增加事实源余额
func (s *DBCreditStrategy) RollbackCredit(ctx context.Context, subscriptionID string, amount int64, trackingID string) error {
	balance, err := s.subs.AddCredits(ctx, subscriptionID, amount)
	if err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditRollbackFailed)
	}
	if s.metrics != nil {
		s.metrics.RollbackTotal.Inc()
	}
	s.log.Infof("credit rollback applied: subscription_id=%s, amount=%d, tracking_id=%s, balance=%d",
		subscriptionID, amount, trackingID, balance)
	return nil
}
