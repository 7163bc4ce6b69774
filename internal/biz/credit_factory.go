package biz

import (
	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// CreditStrategyFactory 按配置选择扣减策略
// 构造时解析一次，之后 Strategy() 无状态、无副作用
type CreditStrategyFactory struct {
	strategy CreditStrategy
	mode     string
}

// NewCreditStrategyFactory 创建策略工厂
// 未识别的模式回退到直连数据库策略（强一致侧更安全）
func NewCreditStrategyFactory(c *CreditConfig, cache *RedisCreditStrategy, db *DBCreditStrategy, logger log.Logger) *CreditStrategyFactory {
	helper := log.NewHelper(logger)
	mode := c.Mode
	var strategy CreditStrategy
	switch mode {
	case constants.ModeRedisBatch:
		strategy = cache
	case constants.ModeDirectDB:
		strategy = db
	default:
		helper.Warnf("unknown credit mode %q, falling back to %s", mode, constants.ModeDirectDB)
		mode = constants.ModeDirectDB
		strategy = db
	}
	helper.Infof("credit strategy selected: mode=%s", mode)
	return &CreditStrategyFactory{strategy: strategy, mode: mode}
}

// Strategy 返回绑定的策略实例
func (f *CreditStrategyFactory) Strategy() CreditStrategy {
	return f.strategy
}

// Mode 返回解析后的模式
func (f *CreditStrategyFactory) Mode() string {
	return f.mode
}
