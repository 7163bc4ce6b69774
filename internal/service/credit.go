package service

import (
	"credit-service/internal/biz"
	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// CreditService 额度管理 HTTP 服务
type CreditService struct {
	factory  *biz.CreditStrategyFactory
	sync     *biz.CreditSyncUseCase
	recovery *biz.CreditRecoveryUseCase
	stats    *biz.StatsUseCase
	log      *log.Helper
}

// NewCreditService 创建额度服务
func NewCreditService(
	factory *biz.CreditStrategyFactory,
	sync *biz.CreditSyncUseCase,
	recovery *biz.CreditRecoveryUseCase,
	stats *biz.StatsUseCase,
	logger log.Logger,
) *CreditService {
	return &CreditService{
		factory:  factory,
		sync:     sync,
		recovery: recovery,
		stats:    stats,
		log:      log.NewHelper(logger),
	}
}

type statusReply struct {
	Mode         string `json:"mode"`
	SyncEnabled  bool   `json:"sync_enabled"`
	PendingCount int64  `json:"pending_count"`
}

type creditsReply struct {
	SubscriptionID string `json:"subscription_id"`
	Credits        int64  `json:"credits"`
}

type syncReply struct {
	PendingBefore int64 `json:"pending_before"`
	PendingAfter  int64 `json:"pending_after"`
}

type usageStatsReply struct {
	SubscriptionID string `json:"subscription_id"`
	Period         string `json:"period"`
	Records        int64  `json:"records"`
	UsedCredits    int64  `json:"used_credits"`
	Batches        int64  `json:"batches"`
}

// GetStatus 返回额度子系统运行状态
func (s *CreditService) GetStatus(ctx http.Context) error {
	count, err := s.sync.PendingCount(ctx)
	if err != nil {
		return err
	}
	return ctx.Result(200, &statusReply{
		Mode:         s.factory.Mode(),
		SyncEnabled:  s.sync.Enabled(),
		PendingCount: count,
	})
}

// GetCredits 查询订阅的当前剩余额度
func (s *CreditService) GetCredits(ctx http.Context) error {
	subscriptionID := ctx.Vars().Get("subscription_id")
	if subscriptionID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidSubscriptionID)
	}

	credits, err := s.factory.Strategy().GetCurrentCredits(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if credits == constants.CreditNotFound {
		return pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeSubscriptionNotFound)
	}
	return ctx.Result(200, &creditsReply{
		SubscriptionID: subscriptionID,
		Credits:        credits,
	})
}

// RefreshCredits 从数据库重新加载订阅额度到缓存
func (s *CreditService) RefreshCredits(ctx http.Context) error {
	subscriptionID := ctx.Vars().Get("subscription_id")
	if subscriptionID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidSubscriptionID)
	}

	credits, err := s.recovery.RefreshSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).Infof("credits refreshed: subscription_id=%s, credits=%d", subscriptionID, credits)
	return ctx.Result(200, &creditsReply{
		SubscriptionID: subscriptionID,
		Credits:        credits,
	})
}

// TriggerSync 手动触发一次全量待同步记录落库
func (s *CreditService) TriggerSync(ctx http.Context) error {
	before, err := s.sync.PendingCount(ctx)
	if err != nil {
		return err
	}
	if err := s.sync.ForceSyncAll(ctx); err != nil {
		return err
	}
	after, err := s.sync.PendingCount(ctx)
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).Infof("manual sync completed: pending %d -> %d", before, after)
	return ctx.Result(200, &syncReply{PendingBefore: before, PendingAfter: after})
}

// GetUsageStats 查询订阅的用量统计，period 支持 today 和 month
func (s *CreditService) GetUsageStats(ctx http.Context) error {
	subscriptionID := ctx.Vars().Get("subscription_id")
	if subscriptionID == "" {
		return pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidSubscriptionID)
	}

	period := ctx.Query().Get("period")
	if period == "" {
		period = constants.StatsPeriodToday
	}

	var (
		result *biz.UsageStats
		err    error
	)
	switch period {
	case constants.StatsPeriodToday:
		result, err = s.stats.GetUsageStatsToday(ctx, subscriptionID)
	case constants.StatsPeriodMonth:
		result, err = s.stats.GetUsageStatsMonth(ctx, subscriptionID)
	default:
		return pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidStatsPeriod)
	}
	if err != nil {
		return err
	}
	return ctx.Result(200, &usageStatsReply{
		SubscriptionID: result.SubscriptionID,
		Period:         result.Period,
		Records:        result.Records,
		UsedCredits:    result.UsedCredits,
		Batches:        result.Batches,
	})
}
