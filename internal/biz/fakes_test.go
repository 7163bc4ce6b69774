package biz

import (
	"context"
	"errors"
	"sync"

	"credit-service/internal/constants"
)

// fakeCreditCache 内存版余额缓存，CheckAndDecrement 在锁内完成检查与扣减，
// 与 Lua 脚本在 Redis 单线程内的原子性等价
type fakeCreditCache struct {
	mu       sync.Mutex
	balances map[string]int64
	failAll  bool
}

func newFakeCreditCache() *fakeCreditCache {
	return &fakeCreditCache{balances: make(map[string]int64)}
}

func (f *fakeCreditCache) GetCredits(_ context.Context, subscriptionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errors.New("cache unavailable")
	}
	balance, ok := f.balances[subscriptionID]
	if !ok {
		return constants.CreditNotFound, nil
	}
	return balance, nil
}

func (f *fakeCreditCache) SetCredits(_ context.Context, subscriptionID string, credits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("cache unavailable")
	}
	f.balances[subscriptionID] = credits
	return nil
}

func (f *fakeCreditCache) SetCreditsIfAbsent(_ context.Context, subscriptionID string, credits int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, errors.New("cache unavailable")
	}
	if _, ok := f.balances[subscriptionID]; ok {
		return false, nil
	}
	f.balances[subscriptionID] = credits
	return true, nil
}

func (f *fakeCreditCache) IncrCredits(_ context.Context, subscriptionID string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errors.New("cache unavailable")
	}
	f.balances[subscriptionID] += amount
	return f.balances[subscriptionID], nil
}

func (f *fakeCreditCache) CheckAndDecrement(_ context.Context, subscriptionID string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errors.New("cache unavailable")
	}
	balance, ok := f.balances[subscriptionID]
	if !ok || balance < amount {
		return constants.CreditNotFound, nil
	}
	f.balances[subscriptionID] = balance - amount
	return f.balances[subscriptionID], nil
}

func (f *fakeCreditCache) balance(subscriptionID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[subscriptionID]
	if !ok {
		return constants.CreditNotFound
	}
	return balance
}

// fakePendingLedger 内存版待落库队列，保持插入顺序
// order 是 id 索引，records 是记录本体；二者可以分开操作，
// 模拟"索引里有条目但记录取不到"的损坏状态
type fakePendingLedger struct {
	mu       sync.Mutex
	records  map[string]*PendingCreditUsage
	order    []string
	saveErr  error
	fetchErr error
}

func newFakePendingLedger() *fakePendingLedger {
	return &fakePendingLedger{records: make(map[string]*PendingCreditUsage)}
}

// addOrphanIndexEntry 登记一个没有记录本体的索引条目
func (f *fakePendingLedger) addOrphanIndexEntry(trackingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, trackingID)
}

func (f *fakePendingLedger) SavePending(_ context.Context, record *PendingCreditUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.records[record.TrackingID]; !ok {
		f.order = append(f.order, record.TrackingID)
	}
	f.records[record.TrackingID] = record
	return nil
}

func (f *fakePendingLedger) GetPendingBatch(_ context.Context, limit int) ([]*PendingCreditUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	// 与真实实现一致：索引条目占用批次名额，取不到记录的条目被跳过
	batch := make([]*PendingCreditUsage, 0, limit)
	for i, id := range f.order {
		if i >= limit {
			break
		}
		if record, ok := f.records[id]; ok {
			batch = append(batch, record)
		}
	}
	return batch, nil
}

func (f *fakePendingLedger) RemovePendingBatch(_ context.Context, trackingIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := make(map[string]bool, len(trackingIDs))
	for _, id := range trackingIDs {
		removed[id] = true
		delete(f.records, id)
	}
	kept := f.order[:0]
	for _, id := range f.order {
		if !removed[id] {
			kept = append(kept, id)
		}
	}
	f.order = kept
	return nil
}

func (f *fakePendingLedger) GetPendingCount(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	// 基数以索引为准（对应 SCard），包含取不到记录的条目
	return int64(len(f.order)), nil
}

func (f *fakePendingLedger) sumCredits() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, record := range f.records {
		total += record.UsedCredits
	}
	return total
}

// fakeCreditUsage 内存版持久账本，按 trackingId 去重并记录批次
type fakeCreditUsage struct {
	mu           sync.Mutex
	rows         map[string]*CreditUsage
	batchIDs     map[string]bool
	usedBySub    map[string]int64
	flushErrLeft int
}

func newFakeCreditUsage() *fakeCreditUsage {
	return &fakeCreditUsage{
		rows:      make(map[string]*CreditUsage),
		batchIDs:  make(map[string]bool),
		usedBySub: make(map[string]int64),
	}
}

func (f *fakeCreditUsage) FlushBatch(_ context.Context, batchID string, records []*PendingCreditUsage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flushErrLeft > 0 {
		f.flushErrLeft--
		return 0, errors.New("flush failed")
	}
	inserted := 0
	for _, record := range records {
		if _, ok := f.rows[record.TrackingID]; ok {
			continue
		}
		f.rows[record.TrackingID] = &CreditUsage{
			ID:             record.TrackingID,
			SubscriptionID: record.SubscriptionID,
			UsedCredits:    record.UsedCredits,
			UsedAt:         record.UsedAt,
			NotificationID: record.NotificationID,
			BatchID:        batchID,
		}
		f.usedBySub[record.SubscriptionID] += record.UsedCredits
		inserted++
	}
	f.batchIDs[batchID] = true
	return inserted, nil
}

func (f *fakeCreditUsage) Create(_ context.Context, usage *CreditUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flushErrLeft > 0 {
		f.flushErrLeft--
		return errors.New("create failed")
	}
	f.rows[usage.ID] = usage
	f.usedBySub[usage.SubscriptionID] += usage.UsedCredits
	return nil
}

// fakeSubscriptions 内存版订阅事实源
type fakeSubscriptions struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{subs: make(map[string]*Subscription)}
}

func (f *fakeSubscriptions) add(id string, credits int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := credits
	f.subs[id] = &Subscription{
		ID:               id,
		Status:           "active",
		RemainingCredits: &c,
	}
}

func (f *fakeSubscriptions) GetSubscription(_ context.Context, subscriptionID string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[subscriptionID], nil
}

func (f *fakeSubscriptions) ListActiveWithCredits(_ context.Context) ([]*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*Subscription
	for _, sub := range f.subs {
		if sub.Status == "active" && sub.RemainingCredits != nil {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (f *fakeSubscriptions) DecrementIfEnough(_ context.Context, subscriptionID string, amount int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subscriptionID]
	if !ok || sub.RemainingCredits == nil || *sub.RemainingCredits < amount {
		return 0, false, nil
	}
	*sub.RemainingCredits -= amount
	return *sub.RemainingCredits, true, nil
}

func (f *fakeSubscriptions) AddCredits(_ context.Context, subscriptionID string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subscriptionID]
	if !ok || sub.RemainingCredits == nil {
		return 0, errors.New("subscription not found")
	}
	*sub.RemainingCredits += amount
	return *sub.RemainingCredits, nil
}

func (f *fakeSubscriptions) SetRemainingCredits(_ context.Context, subscriptionID string, credits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return errors.New("subscription not found")
	}
	c := credits
	sub.RemainingCredits = &c
	return nil
}
