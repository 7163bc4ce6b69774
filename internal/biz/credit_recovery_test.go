package biz

import (
	"context"
	"testing"

	"credit-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecoveryFixture(conf *CreditConfig) (*CreditRecoveryUseCase, *fakeCreditCache, *fakePendingLedger, *fakeCreditUsage, *fakeSubscriptions) {
	cache := newFakeCreditCache()
	pending := newFakePendingLedger()
	usage := newFakeCreditUsage()
	subs := newFakeSubscriptions()
	sync := NewCreditSyncUseCase(pending, usage, conf, newTestLogger())
	uc := NewCreditRecoveryUseCase(sync, subs, cache, conf, newTestLogger())
	return uc, cache, pending, usage, subs
}

func TestRecovery_StartupFlushesThenSeeds(t *testing.T) {
	ctx := context.Background()
	uc, cache, pending, usage, subs := newRecoveryFixture(syncTestConfig())

	subs.add("sub-1", 100)
	seedPending(t, pending, "sub-1", 5)

	uc.OnStartup(ctx)

	// 崩溃遗留的扣减先落库
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, usage.rows, 5)

	// 再用事实源余额预热缓存
	assert.Equal(t, int64(100), cache.balance("sub-1"))
}

func TestRecovery_SeedDoesNotClobberExistingBalance(t *testing.T) {
	ctx := context.Background()
	uc, cache, _, _, subs := newRecoveryFixture(syncTestConfig())

	subs.add("sub-1", 100)
	subs.add("sub-2", 200)

	// sub-1 的缓存余额因未落库的扣减领先于事实源
	require.NoError(t, cache.SetCredits(ctx, "sub-1", 70))

	seeded, err := uc.SeedBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
	assert.Equal(t, int64(70), cache.balance("sub-1"))
	assert.Equal(t, int64(200), cache.balance("sub-2"))
}

func TestRecovery_StartupSkippedInDirectDBMode(t *testing.T) {
	ctx := context.Background()
	conf := syncTestConfig()
	conf.Mode = constants.ModeDirectDB
	uc, cache, pending, _, subs := newRecoveryFixture(conf)

	subs.add("sub-1", 100)
	seedPending(t, pending, "sub-1", 3)

	uc.OnStartup(ctx)

	// 直连模式下既不落库也不预热
	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, constants.CreditNotFound, cache.balance("sub-1"))
}

func TestRecovery_ShutdownFlushesPending(t *testing.T) {
	ctx := context.Background()
	uc, _, pending, usage, _ := newRecoveryFixture(syncTestConfig())

	seedPending(t, pending, "sub-1", 7)

	uc.OnShutdown(ctx)

	count, err := pending.GetPendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, usage.rows, 7)
}

func TestRecovery_RefreshSubscription(t *testing.T) {
	ctx := context.Background()
	uc, cache, _, _, subs := newRecoveryFixture(syncTestConfig())

	subs.add("sub-1", 100)
	require.NoError(t, cache.SetCredits(ctx, "sub-1", 5))

	// 刷新无条件覆盖缓存
	credits, err := uc.RefreshSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), credits)
	assert.Equal(t, int64(100), cache.balance("sub-1"))

	_, err = uc.RefreshSubscription(ctx, "unknown")
	require.Error(t, err)
}

func TestRecovery_Reconcile(t *testing.T) {
	ctx := context.Background()
	uc, cache, pending, usage, subs := newRecoveryFixture(syncTestConfig())

	subs.add("sub-1", 100)
	seedPending(t, pending, "sub-1", 4)

	seeded, err := uc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
	assert.Len(t, usage.rows, 4)
	assert.Equal(t, int64(100), cache.balance("sub-1"))
}
