package data

import (
	"context"
	"fmt"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// statsRepo 统计相关数据访问
type statsRepo struct {
	data *Data
	log  *log.Helper
}

// NewStatsRepo 创建统计 repo（返回 biz.StatsRepo 接口）
func NewStatsRepo(data *Data, logger log.Logger) biz.StatsRepo {
	return &statsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetUsageStatsToday 获取今日用量统计
func (r *statsRepo) GetUsageStatsToday(ctx context.Context, subscriptionID string) (*biz.UsageStats, error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayEnd := todayStart.Add(24 * time.Hour)

	return r.getUsageStats(ctx, subscriptionID, constants.StatsPeriodToday, todayStart, todayEnd)
}

// GetUsageStatsMonth 获取本月用量统计
func (r *statsRepo) GetUsageStatsMonth(ctx context.Context, subscriptionID string) (*biz.UsageStats, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonthStart := monthStart.AddDate(0, 1, 0)

	return r.getUsageStats(ctx, subscriptionID, constants.StatsPeriodMonth, monthStart, nextMonthStart)
}

func (r *statsRepo) getUsageStats(ctx context.Context, subscriptionID, period string, from, to time.Time) (*biz.UsageStats, error) {
	var result struct {
		Records     int64
		UsedCredits int64
		Batches     int64
	}

	if err := r.data.db.WithContext(ctx).Model(&model.CreditUsage{}).
		Where("subscription_id = ? AND used_at >= ? AND used_at < ?", subscriptionID, from, to).
		Select(
			"COUNT(*) as records",
			"COALESCE(SUM(used_credits), 0) as used_credits",
			"COUNT(DISTINCT batch_id) as batches",
		).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("get usage stats failed: %w", err)
	}

	return &biz.UsageStats{
		SubscriptionID: subscriptionID,
		Period:         period,
		Records:        result.Records,
		UsedCredits:    result.UsedCredits,
		Batches:        result.Batches,
	}, nil
}
