package data

import (
	"context"
	"fmt"

	"credit-service/internal/biz"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// creditUsageRepo 用量流水相关数据访问
type creditUsageRepo struct {
	data *Data
	log  *log.Helper
}

// NewCreditUsageRepo 创建用量流水 repo（返回 biz.CreditUsageRepo 接口）
func NewCreditUsageRepo(data *Data, logger log.Logger) biz.CreditUsageRepo {
	return &creditUsageRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// FlushBatch 单事务落库一个批次
// 流水主键复用 trackingId：先查出已存在的 id（崩溃后重放的批次），
// 只为缺失的记录插入流水并聚合扣减余额——重放不会产生第二行流水，
// 也不会二次扣减事实源余额
func (r *creditUsageRepo) FlushBatch(ctx context.Context, batchID string, records []*biz.PendingCreditUsage) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.TrackingID)
		}

		var existing []string
		if err := tx.Model(&model.CreditUsage{}).
			Where("credit_usage_id IN ?", ids).
			Pluck("credit_usage_id", &existing).Error; err != nil {
			return fmt.Errorf("lookup persisted tracking ids failed: %w", err)
		}
		seen := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			seen[id] = struct{}{}
		}

		rows := make([]model.CreditUsage, 0, len(records))
		totals := make(map[string]int64)
		for _, record := range records {
			if _, ok := seen[record.TrackingID]; ok {
				// 上次落库后崩溃在删除待落库记录之前，跳过
				r.log.Warnf("tracking id already persisted, skipping replay: tracking_id=%s", record.TrackingID)
				continue
			}
			rows = append(rows, model.CreditUsage{
				CreditUsageID:  record.TrackingID,
				SubscriptionID: record.SubscriptionID,
				UsedCredits:    record.UsedCredits,
				UsedAt:         record.UsedAt,
				NotificationID: record.NotificationID,
				BatchID:        batchID,
				Description:    record.Description,
			})
			totals[record.SubscriptionID] += record.UsedCredits
		}
		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert usage rows failed: %w", err)
		}

		// 每订阅每批次只做一次加量更新
		for subscriptionID, sum := range totals {
			if err := tx.Model(&model.Subscription{}).
				Where("subscription_id = ?", subscriptionID).
				Update("remaining_credits", gorm.Expr("remaining_credits - ?", sum)).Error; err != nil {
				return fmt.Errorf("aggregate decrement failed for subscription %s: %w", subscriptionID, err)
			}
		}

		inserted = len(rows)
		return nil
	})
	return inserted, err
}

// Create 单条流水写入（直连数据库策略）
func (r *creditUsageRepo) Create(ctx context.Context, usage *biz.CreditUsage) error {
	m := model.CreditUsage{
		CreditUsageID:  usage.ID,
		SubscriptionID: usage.SubscriptionID,
		UsedCredits:    usage.UsedCredits,
		UsedAt:         usage.UsedAt,
		NotificationID: usage.NotificationID,
		BatchID:        usage.BatchID,
		Description:    usage.Description,
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}
