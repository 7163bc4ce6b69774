package biz

import (
	"fmt"
	"time"

	"credit-service/internal/conf"
	"credit-service/internal/constants"
)

// CreditConfig 额度子系统配置
type CreditConfig struct {
	Mode             string
	KeyPrefix        string
	PendingKeyPrefix string
	SyncEnabled      bool
	SyncInterval     time.Duration
	SyncBatchSize    int
	SyncRetryCount   int
	LockExpiry       time.Duration
	LockMinHold      time.Duration
}

// NewCreditConfig 从配置创建 CreditConfig
// 时长字段写错（解析失败）直接报错，不回退到默认值
func NewCreditConfig(c *conf.Bootstrap) (*CreditConfig, error) {
	config := &CreditConfig{
		Mode:             constants.ModeRedisBatch,
		KeyPrefix:        constants.RedisKeyCredit,
		PendingKeyPrefix: constants.RedisKeyPending,
		SyncEnabled:      true,
		SyncInterval:     30 * time.Second,
		SyncBatchSize:    constants.DefaultSyncBatchSize,
		SyncRetryCount:   constants.DefaultSyncRetryCount,
		LockExpiry:       2 * time.Minute,
		LockMinHold:      time.Second,
	}
	if c == nil || c.Credit == nil {
		return config, nil
	}
	if c.Credit.Mode != "" {
		config.Mode = c.Credit.Mode
	}
	if c.Credit.KeyPrefix != "" {
		config.KeyPrefix = c.Credit.KeyPrefix
	}
	if c.Credit.PendingKeyPrefix != "" {
		config.PendingKeyPrefix = c.Credit.PendingKeyPrefix
	}
	if s := c.Credit.Sync; s != nil {
		config.SyncEnabled = s.Enabled
		d, err := s.Interval.AsDuration()
		if err != nil {
			return nil, fmt.Errorf("credit.sync.interval: %w", err)
		}
		if d > 0 {
			config.SyncInterval = d
		}
		if s.BatchSize > 0 {
			config.SyncBatchSize = s.BatchSize
		}
		if s.RetryCount > 0 {
			config.SyncRetryCount = s.RetryCount
		}
		d, err = s.LockExpiry.AsDuration()
		if err != nil {
			return nil, fmt.Errorf("credit.sync.lock_expiry: %w", err)
		}
		if d > 0 {
			config.LockExpiry = d
		}
		d, err = s.LockMinHold.AsDuration()
		if err != nil {
			return nil, fmt.Errorf("credit.sync.lock_min_hold: %w", err)
		}
		if d > 0 {
			config.LockMinHold = d
		}
	}
	return config, nil
}
