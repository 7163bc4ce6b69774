package data

import (
	"context"
	"errors"
	"fmt"

	"credit-service/internal/biz"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// subscriptionRepo 订阅相关数据访问（系统事实源）
type subscriptionRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionRepo 创建订阅 repo（返回 biz.SubscriptionRepo 接口）
func NewSubscriptionRepo(data *Data, logger log.Logger) biz.SubscriptionRepo {
	return &subscriptionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetSubscription 获取订阅，不存在时返回 nil 而不是错误
func (r *subscriptionRepo) GetSubscription(ctx context.Context, subscriptionID string) (*biz.Subscription, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscriptionID is required")
	}

	var m model.Subscription
	if err := r.data.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetSubscription failed: subscription_id=%s, error=%v", subscriptionID, err)
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}

	return toBizSubscription(&m), nil
}

// ListActiveWithCredits 返回所有开通额度计费的活跃订阅（缓存预热用）
func (r *subscriptionRepo) ListActiveWithCredits(ctx context.Context) ([]*biz.Subscription, error) {
	var models []model.Subscription
	if err := r.data.db.WithContext(ctx).
		Where("status = ? AND remaining_credits IS NOT NULL", model.SubscriptionStatusActive).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	subs := make([]*biz.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, toBizSubscription(&models[i]))
	}
	return subs, nil
}

// DecrementIfEnough 条件扣减：仅当 remaining_credits >= amount 时生效
// 检查与扣减在单条 UPDATE 内完成，RowsAffected 为 0 即余额不足
func (r *subscriptionRepo) DecrementIfEnough(ctx context.Context, subscriptionID string, amount int64) (int64, bool, error) {
	result := r.data.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ? AND remaining_credits >= ?", subscriptionID, amount).
		Update("remaining_credits", gorm.Expr("remaining_credits - ?", amount))
	if result.Error != nil {
		return 0, false, fmt.Errorf("conditional decrement failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	// MySQL 没有 UPDATE ... RETURNING，扣减后余额只能单独 SELECT，
	// 期间并发写入者可能已再次变更余额。返回值仅用于展示和日志，
	// 扣减是否成功只看 RowsAffected
	var m model.Subscription
	if err := r.data.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&m).Error; err != nil {
		return 0, true, fmt.Errorf("read balance after decrement failed: %w", err)
	}
	var remaining int64
	if m.RemainingCredits != nil {
		remaining = *m.RemainingCredits
	}
	return remaining, true, nil
}

// AddCredits 无条件增加余额（加量更新，不覆盖）
func (r *subscriptionRepo) AddCredits(ctx context.Context, subscriptionID string, amount int64) (int64, error) {
	result := r.data.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Update("remaining_credits", gorm.Expr("remaining_credits + ?", amount))
	if result.Error != nil {
		return 0, fmt.Errorf("add credits failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("subscription not found: %s", subscriptionID)
	}

	var m model.Subscription
	if err := r.data.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&m).Error; err != nil {
		return 0, fmt.Errorf("read balance after add failed: %w", err)
	}
	var remaining int64
	if m.RemainingCredits != nil {
		remaining = *m.RemainingCredits
	}
	return remaining, nil
}

// SetRemainingCredits 无条件覆盖余额
func (r *subscriptionRepo) SetRemainingCredits(ctx context.Context, subscriptionID string, credits int64) error {
	result := r.data.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Update("remaining_credits", credits)
	if result.Error != nil {
		return fmt.Errorf("set remaining credits failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	return nil
}

func toBizSubscription(m *model.Subscription) *biz.Subscription {
	return &biz.Subscription{
		ID:               m.SubscriptionID,
		PartnerID:        m.PartnerID,
		Status:           m.Status,
		RemainingCredits: m.RemainingCredits,
		UpdatedAt:        m.UpdatedAt,
	}
}
