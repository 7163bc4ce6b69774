package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"credit-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncTestConfig() *CreditConfig {
	return &CreditConfig{
		Mode:           constants.ModeRedisBatch,
		SyncEnabled:    true,
		SyncInterval:   30 * time.Second,
		SyncBatchSize:  100,
		SyncRetryCount: 3,
	}
}

func seedPending(t *testing.T, pending *fakePendingLedger, subscriptionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := pending.SavePending(context.Background(), &PendingCreditUsage{
			TrackingID:     fmt.Sprintf("%s-track-%d", subscriptionID, i),
			SubscriptionID: subscriptionID,
			UsedCredits:    1,
			UsedAt:         time.Now(),
		})
		require.NoError(t, err)
	}
}

func TestSync_FlushesInBatches(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	// 250 条记录分布在 3 个订阅上，批大小 100
	seedPending(t, pending, "sub-1", 120)
	seedPending(t, pending, "sub-2", 80)
	seedPending(t, pending, "sub-3", 50)

	require.NoError(t, uc.SyncPendingCredits(ctx))

	// 全部落库，队列清空
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, usage.rows, 250)

	// 250/100 → 3 个批次
	assert.Len(t, usage.batchIDs, 3)

	// 按订阅聚合的扣减量与入队量一致
	assert.Equal(t, int64(120), usage.usedBySub["sub-1"])
	assert.Equal(t, int64(80), usage.usedBySub["sub-2"])
	assert.Equal(t, int64(50), usage.usedBySub["sub-3"])
}

func TestSync_EmptyQueueIsNoop(t *testing.T) {
	uc := NewCreditSyncUseCase(newFakePendingLedger(), newFakeCreditUsage(), syncTestConfig(), newTestLogger())
	require.NoError(t, uc.SyncPendingCredits(context.Background()))
}

func TestSync_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	conf := syncTestConfig()
	conf.SyncEnabled = false
	uc := NewCreditSyncUseCase(pending, usage, conf, newTestLogger())

	seedPending(t, pending, "sub-1", 5)
	require.NoError(t, uc.SyncPendingCredits(ctx))

	// 禁用时不触碰队列
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Empty(t, usage.rows)
}

func TestSync_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	usage.flushErrLeft = 2
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 10)

	// 前两次落库失败，第三次成功，重试预算（3 次）足够
	require.NoError(t, uc.SyncPendingCredits(ctx))

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, usage.rows, 10)
}

func TestSync_RetryExhaustedKeepsRecords(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	usage.flushErrLeft = 10
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 10)

	require.Error(t, uc.SyncPendingCredits(ctx))

	// 中止周期后记录保留，等下一周期重试
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
	assert.Empty(t, usage.rows)
}

func TestSync_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 10)

	// 模拟"落库成功但删除前崩溃"：先手工落库同一批记录
	batch, err := pending.GetPendingBatch(ctx, 100)
	require.NoError(t, err)
	_, err = usage.FlushBatch(ctx, "crashed-batch", batch)
	require.NoError(t, err)

	// 重放不会重复记账
	require.NoError(t, uc.SyncPendingCredits(ctx))
	assert.Len(t, usage.rows, 10)
	assert.Equal(t, int64(10), usage.usedBySub["sub-1"])

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSync_SkipsEntriesWithoutRecords(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	conf := syncTestConfig()
	conf.SyncBatchSize = 3
	uc := NewCreditSyncUseCase(pending, usage, conf, newTestLogger())

	// 索引里夹着一个取不到记录本体的条目（损坏或崩溃残留）
	seedPending(t, pending, "sub-1", 1)
	pending.addOrphanIndexEntry("orphan-1")
	seedPending(t, pending, "sub-2", 3)

	// 跳过后的缩水批次不终止周期：健康记录全部落库，不报错
	require.NoError(t, uc.SyncPendingCredits(ctx))
	assert.Len(t, usage.rows, 4)
	assert.Equal(t, int64(1), usage.usedBySub["sub-1"])
	assert.Equal(t, int64(3), usage.usedBySub["sub-2"])

	// 损坏条目留在索引里等待下一次拉取（或告警处理）
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	batch, err := pending.GetPendingBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestForceSyncAll_DrainsQueue(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 250)

	require.NoError(t, uc.ForceSyncAll(ctx))

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, usage.rows, 250)
}

func TestForceSyncAll_StopsOnEntriesWithoutRecords(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 2)
	pending.addOrphanIndexEntry("orphan-1")

	// 健康记录落库后基数仍大于零但拉取为空：停止而不是死循环，不报错
	require.NoError(t, uc.ForceSyncAll(ctx))
	assert.Len(t, usage.rows, 2)

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 只剩损坏条目时再次调用同样直接返回
	require.NoError(t, uc.ForceSyncAll(ctx))
	assert.Len(t, usage.rows, 2)
}

func TestForceSyncAll_PropagatesFlushError(t *testing.T) {
	ctx := context.Background()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	usage.flushErrLeft = 100
	uc := NewCreditSyncUseCase(pending, usage, syncTestConfig(), newTestLogger())

	seedPending(t, pending, "sub-1", 10)

	require.Error(t, uc.ForceSyncAll(ctx))

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}
