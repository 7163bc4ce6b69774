package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCreditConfig,
	NewRedisCreditStrategy,
	NewDBCreditStrategy,
	NewCreditStrategyFactory,
	NewCreditSyncUseCase,
	NewCreditRecoveryUseCase,
	NewStatsUseCase,
)
