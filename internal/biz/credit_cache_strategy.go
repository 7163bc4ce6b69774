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

// RedisCreditStrategy 缓存扣减策略（快路径）
// 扣减先落在 Redis，成功后追加待落库记录，由同步调度器批量落库，
// 请求路径与持久化延迟完全解耦
type RedisCreditStrategy struct {
	cache   CreditCacheRepo
	pending PendingLedgerRepo
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewRedisCreditStrategy 创建缓存扣减策略
func NewRedisCreditStrategy(cache CreditCacheRepo, pending PendingLedgerRepo, logger log.Logger) *RedisCreditStrategy {
	return &RedisCreditStrategy{
		cache:   cache,
		pending: pending,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// HasCredits 检查余额是否足够；缓存缺失视为不足
func (s *RedisCreditStrategy) HasCredits(ctx context.Context, subscriptionID string, amount int64) (bool, error) {
	balance, err := s.cache.GetCredits(ctx, subscriptionID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CreditCheckTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return false, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditCacheUnavailable)
	}
	if balance == constants.CreditNotFound || balance < amount {
		if s.metrics != nil {
			s.metrics.CreditCheckTotal.WithLabelValues(constants.ResultInsufficient).Inc()
		}
		return false, nil
	}
	if s.metrics != nil {
		s.metrics.CreditCheckTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	return true, nil
}

// GetCurrentCredits 返回缓存余额，缺失时返回 constants.CreditNotFound
func (s *RedisCreditStrategy) GetCurrentCredits(ctx context.Context, subscriptionID string) (int64, error) {
	balance, err := s.cache.GetCredits(ctx, subscriptionID)
	if err != nil {
		return constants.CreditNotFound, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditCacheUnavailable)
	}
	return balance, nil
}

// CheckAndDecrement 原子检查并扣减
// 脚本保证检查与扣减在缓存侧不可分割；成功后追加待落库记录。
// 追加失败时补偿缓存扣减并让本次扣减失败，避免扣减只存在于缓存中
func (s *RedisCreditStrategy) CheckAndDecrement(ctx context.Context, subscriptionID string, amount int64, notificationID string) (*CreditDecrement, error) {
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.DecrementDuration.WithLabelValues(constants.ModeRedisBatch).Observe(time.Since(startTime).Seconds())
		}
	}()

	remaining, err := s.cache.CheckAndDecrement(ctx, subscriptionID, amount)
	if err != nil {
		// 缓存不可用：本次扣减失败，不静默降级到数据库
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeRedisBatch, constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditCacheUnavailable)
	}
	if remaining == constants.CreditNotFound {
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeRedisBatch, constants.ResultInsufficient).Inc()
		}
		return &CreditDecrement{Success: false, Remaining: constants.CreditNotFound}, nil
	}

	record := &PendingCreditUsage{
		TrackingID:     uuid.New().String(),
		SubscriptionID: subscriptionID,
		UsedCredits:    amount,
		UsedAt:         time.Now(),
		NotificationID: notificationID,
	}
	if err := s.pending.SavePending(ctx, record); err != nil {
		// 补偿缓存扣减，保证不会出现"已扣减但无待落库记录"的状态
		if _, rbErr := s.cache.IncrCredits(ctx, subscriptionID, amount); rbErr != nil {
			s.log.Errorf("failed to compensate cache decrement after pending save failure: subscription_id=%s, amount=%d, error=%v",
				subscriptionID, amount, rbErr)
		}
		if s.metrics != nil {
			s.metrics.DecrementTotal.WithLabelValues(constants.ModeRedisBatch, constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodePendingSaveFailed)
	}

	if s.metrics != nil {
		s.metrics.DecrementTotal.WithLabelValues(constants.ModeRedisBatch, constants.ResultSuccess).Inc()
	}
	return &CreditDecrement{Success: true, Remaining: remaining, TrackingID: record.TrackingID}, nil
}

// InitializeCredits 无条件设置缓存余额（预热用），不触碰待落库队列
func (s *RedisCreditStrategy) InitializeCredits(ctx context.Context, subscriptionID string, credits int64) error {
	if err := s.cache.SetCredits(ctx, subscriptionID, credits); err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditInitFailed)
	}
	return nil
}

// RollbackCredit 补偿性增加缓存余额
// 不回收已入队的待落库记录：原始扣减照常落库，补偿使余额归零。
// trackingID 仅用于日志关联
func (s *RedisCreditStrategy) RollbackCredit(ctx context.Context, subscriptionID string, amount int64, trackingID string) error {
	balance, err := s.cache.IncrCredits(ctx, subscriptionID, amount)
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
