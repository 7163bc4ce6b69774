package model

import (
	"time"
)

// 订阅状态常量
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
)

// Subscription 订阅表（系统事实源）
// RemainingCredits 为 NULL 表示该订阅未开通额度计费
type Subscription struct {
	SubscriptionID   string    `gorm:"primaryKey;type:varchar(36)"`
	PartnerID        string    `gorm:"type:varchar(36);not null;index"`
	Status           string    `gorm:"type:varchar(16);not null;default:'active';index"`
	RemainingCredits *int64    `gorm:"type:bigint"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscription"
}
