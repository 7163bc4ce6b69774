package model

import (
	"time"
)

// CreditUsage 额度消耗流水表（持久账本）
// CreditUsageID 复用待落库记录的 trackingId，重放落库时天然幂等
type CreditUsage struct {
	CreditUsageID  string    `gorm:"primaryKey;type:varchar(36)"`
	SubscriptionID string    `gorm:"type:varchar(36);not null;index:idx_sub_date,priority:1"`
	UsedCredits    int64     `gorm:"not null"`
	UsedAt         time.Time `gorm:"not null;index:idx_sub_date,priority:2"`
	NotificationID string    `gorm:"type:varchar(36)"`
	BatchID        string    `gorm:"type:varchar(36);not null;index"`
	Description    string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (CreditUsage) TableName() string {
	return "credit_usage"
}
