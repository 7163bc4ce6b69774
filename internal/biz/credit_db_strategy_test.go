package biz

import (
	"context"
	"testing"

	"credit-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBStrategy_CheckAndDecrement(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	usage := newFakeCreditUsage()
	strategy := NewDBCreditStrategy(subs, usage, newTestLogger())

	subs.add("sub-1", 100)

	result, err := strategy.CheckAndDecrement(ctx, "sub-1", 30, "notif-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(70), result.Remaining)
	assert.NotEmpty(t, result.TrackingID)

	// 流水同步写入
	row, ok := usage.rows[result.TrackingID]
	require.True(t, ok)
	assert.Equal(t, "sub-1", row.SubscriptionID)
	assert.Equal(t, int64(30), row.UsedCredits)
	assert.Equal(t, "notif-1", row.NotificationID)
	assert.NotEmpty(t, row.BatchID)
}

func TestDBStrategy_CheckAndDecrement_Insufficient(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	usage := newFakeCreditUsage()
	strategy := NewDBCreditStrategy(subs, usage, newTestLogger())

	subs.add("sub-1", 20)

	result, err := strategy.CheckAndDecrement(ctx, "sub-1", 30, "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, constants.CreditNotFound, result.Remaining)
	assert.Empty(t, usage.rows)

	balance, err := strategy.GetCurrentCredits(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)
}

func TestDBStrategy_CheckAndDecrement_UsageInsertFailure(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	usage := newFakeCreditUsage()
	usage.flushErrLeft = 1
	strategy := NewDBCreditStrategy(subs, usage, newTestLogger())

	subs.add("sub-1", 100)

	_, err := strategy.CheckAndDecrement(ctx, "sub-1", 30, "")
	require.Error(t, err)

	// 流水写入失败必须补偿余额扣减
	balance, err := strategy.GetCurrentCredits(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestDBStrategy_GetCurrentCredits_Missing(t *testing.T) {
	ctx := context.Background()
	strategy := NewDBCreditStrategy(newFakeSubscriptions(), newFakeCreditUsage(), newTestLogger())

	credits, err := strategy.GetCurrentCredits(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, constants.CreditNotFound, credits)

	ok, err := strategy.HasCredits(ctx, "unknown", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDBStrategy_Rollback(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	strategy := NewDBCreditStrategy(subs, newFakeCreditUsage(), newTestLogger())

	subs.add("sub-1", 10)
	require.NoError(t, strategy.RollbackCredit(ctx, "sub-1", 40, "tracking-1"))

	balance, err := strategy.GetCurrentCredits(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}
