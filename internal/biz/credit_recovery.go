package biz

import (
	"context"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CreditRecoveryUseCase 崩溃恢复协调器
// 进程启动时先清空残留的待落库队列再预热缓存；优雅退出时再次清空，
// 尽量不把扣减留在易失缓存里过夜
type CreditRecoveryUseCase struct {
	sync    *CreditSyncUseCase
	subs    SubscriptionRepo
	cache   CreditCacheRepo
	conf    *CreditConfig
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewCreditRecoveryUseCase 创建恢复 UseCase
func NewCreditRecoveryUseCase(sync *CreditSyncUseCase, subs SubscriptionRepo, cache CreditCacheRepo, conf *CreditConfig, logger log.Logger) *CreditRecoveryUseCase {
	return &CreditRecoveryUseCase{
		sync:    sync,
		subs:    subs,
		cache:   cache,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// OnStartup 启动恢复：先强制落库（防止崩溃遗留的扣减跨重启丢失），
// 后预热缓存。顺序不能颠倒：预热必须发生在落库之后，
// 否则会用过期的事实源余额覆盖尚未落库的扣减
// 恢复失败不阻止进程启动，只记日志（下一个调度周期兜底）
func (uc *CreditRecoveryUseCase) OnStartup(ctx context.Context) {
	if uc.conf.Mode != constants.ModeRedisBatch {
		return
	}

	count, err := uc.sync.PendingCount(ctx)
	if err != nil {
		uc.log.Errorf("startup recovery: pending count failed: %v", err)
	} else if count > 0 {
		uc.log.Infof("startup recovery: %d leftover pending records, forcing sync", count)
		if err := uc.sync.ForceSyncAll(ctx); err != nil {
			uc.log.Errorf("startup recovery: force sync failed: %v", err)
		}
	}

	seeded, err := uc.SeedBalances(ctx)
	if err != nil {
		uc.log.Errorf("startup recovery: seeding failed: %v", err)
		return
	}
	uc.log.Infof("startup recovery completed: seeded=%d", seeded)
}

// OnShutdown 退出前尽力清空待落库队列，减少下次启动需要回放的量
func (uc *CreditRecoveryUseCase) OnShutdown(ctx context.Context) {
	if uc.conf.Mode != constants.ModeRedisBatch {
		return
	}

	count, err := uc.sync.PendingCount(ctx)
	if err != nil {
		uc.log.Errorf("shutdown recovery: pending count failed: %v", err)
		return
	}
	if count == 0 {
		return
	}
	uc.log.Infof("shutdown recovery: flushing %d pending records", count)
	if err := uc.sync.ForceSyncAll(ctx); err != nil {
		uc.log.Errorf("shutdown recovery: force sync failed: %v", err)
	}
}

// SeedBalances 为所有开通额度的活跃订阅预热缓存余额
// set-if-absent：已存在的缓存余额可能因未落库的扣减领先于事实源，绝不覆盖
func (uc *CreditRecoveryUseCase) SeedBalances(ctx context.Context) (int, error) {
	subs, err := uc.subs.ListActiveWithCredits(ctx)
	if err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSeedFailed)
	}

	seeded := 0
	for _, sub := range subs {
		if sub.RemainingCredits == nil {
			continue
		}
		set, err := uc.cache.SetCreditsIfAbsent(ctx, sub.ID, *sub.RemainingCredits)
		if err != nil {
			if uc.metrics != nil {
				uc.metrics.SeedTotal.WithLabelValues(constants.ResultFailed).Inc()
			}
			uc.log.Warnf("seed failed: subscription_id=%s, error=%v", sub.ID, err)
			continue
		}
		if set {
			seeded++
			if uc.metrics != nil {
				uc.metrics.SeedTotal.WithLabelValues(constants.ResultSuccess).Inc()
			}
		}
	}
	return seeded, nil
}

// RefreshSubscription 管理端单订阅刷新：无条件用事实源余额覆盖缓存
func (uc *CreditRecoveryUseCase) RefreshSubscription(ctx context.Context, subscriptionID string) (int64, error) {
	sub, err := uc.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionGetFailed)
	}
	if sub == nil || sub.RemainingCredits == nil {
		return 0, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeSubscriptionNotFound)
	}
	if err := uc.cache.SetCredits(ctx, subscriptionID, *sub.RemainingCredits); err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeRefreshFailed)
	}
	uc.log.Infof("cache refreshed from system of record: subscription_id=%s, credits=%d", subscriptionID, *sub.RemainingCredits)
	return *sub.RemainingCredits, nil
}

// Reconcile 夜间对账：强制落库 + 预热缺失的缓存余额（cmd/cron 调用）
func (uc *CreditRecoveryUseCase) Reconcile(ctx context.Context) (int, error) {
	if uc.conf.Mode != constants.ModeRedisBatch {
		return 0, nil
	}
	if err := uc.sync.ForceSyncAll(ctx); err != nil {
		return 0, err
	}
	return uc.SeedBalances(ctx)
}
