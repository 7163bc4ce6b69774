package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
)

// UsageStats 用量统计领域对象
type UsageStats struct {
	SubscriptionID string
	Period         string
	Records        int64
	UsedCredits    int64
	Batches        int64
}

// StatsRepo 统计数据层接口（定义在 biz 层）
type StatsRepo interface {
	// GetUsageStatsToday 今日用量统计
	GetUsageStatsToday(ctx context.Context, subscriptionID string) (*UsageStats, error)
	// GetUsageStatsMonth 本月用量统计
	GetUsageStatsMonth(ctx context.Context, subscriptionID string) (*UsageStats, error)
}

// StatsUseCase 统计业务逻辑
type StatsUseCase struct {
	repo StatsRepo
	log  *log.Helper
}

// NewStatsUseCase 创建统计 UseCase
func NewStatsUseCase(repo StatsRepo, logger log.Logger) *StatsUseCase {
	return &StatsUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// GetUsageStatsToday 今日用量统计
func (uc *StatsUseCase) GetUsageStatsToday(ctx context.Context, subscriptionID string) (*UsageStats, error) {
	return uc.repo.GetUsageStatsToday(ctx, subscriptionID)
}

// GetUsageStatsMonth 本月用量统计
func (uc *StatsUseCase) GetUsageStatsMonth(ctx context.Context, subscriptionID string) (*UsageStats, error) {
	return uc.repo.GetUsageStatsMonth(ctx, subscriptionID)
}
