package biz

import (
	"context"
	"time"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CreditSyncUseCase 批量同步业务逻辑
// 将待落库队列分批排入持久账本，并按订阅聚合扣减事实源余额。
// 落库顺序固定：先持久化（流水 + 余额扣减），后删除待落库记录，
// 崩溃只会导致重放，FlushBatch 按 trackingId 幂等，不会重复记账
type CreditSyncUseCase struct {
	pending PendingLedgerRepo
	usage   CreditUsageRepo
	conf    *CreditConfig
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewCreditSyncUseCase 创建同步 UseCase
func NewCreditSyncUseCase(pending PendingLedgerRepo, usage CreditUsageRepo, conf *CreditConfig, logger log.Logger) *CreditSyncUseCase {
	return &CreditSyncUseCase{
		pending: pending,
		usage:   usage,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Enabled 定时同步是否开启
func (uc *CreditSyncUseCase) Enabled() bool {
	return uc.conf.SyncEnabled
}

// PendingCount 当前待落库记录数
func (uc *CreditSyncUseCase) PendingCount(ctx context.Context) (int64, error) {
	count, err := uc.pending.GetPendingCount(ctx)
	if err != nil {
		return 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodePendingFetchFailed)
	}
	if uc.metrics != nil {
		uc.metrics.PendingCount.Set(float64(count))
	}
	return count, nil
}

// SyncPendingCredits 单个同步周期
// 批量拉取 → 落库 → 删除，循环直到拉取为空或重试耗尽；
// 任何批次失败都重新拉取同一批未落库记录重试（对象重建，集合不变），
// 超过重试上限则中止本周期，记录留待下一周期
func (uc *CreditSyncUseCase) SyncPendingCredits(ctx context.Context) error {
	if !uc.conf.SyncEnabled {
		return nil
	}
	count, err := uc.PendingCount(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.SyncCycleDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	uc.log.Infof("sync cycle started: pending=%d, batch_size=%d", count, uc.conf.SyncBatchSize)

	retries := 0
	flushed := 0
	for {
		batch, err := uc.pending.GetPendingBatch(ctx, uc.conf.SyncBatchSize)
		if err == nil {
			if len(batch) == 0 {
				break
			}
			err = uc.flushBatch(ctx, batch)
			if err == nil {
				flushed += len(batch)
				// 跳过缺失/损坏记录会让批次小于上限，此时队列里可能
				// 仍有健康记录，继续拉取；队列取空由空批次终止循环
				continue
			}
		}

		retries++
		if uc.metrics != nil {
			uc.metrics.SyncRetryTotal.Inc()
		}
		if retries > uc.conf.SyncRetryCount {
			if uc.metrics != nil {
				uc.metrics.SyncCycleTotal.WithLabelValues(constants.ResultFailed).Inc()
			}
			uc.log.Errorf("sync cycle aborted after %d retries: flushed=%d, error=%v", retries-1, flushed, err)
			return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSyncRetryExhausted)
		}
		uc.log.Warnf("sync batch failed, retrying (%d/%d): %v", retries, uc.conf.SyncRetryCount, err)
	}

	if uc.metrics != nil {
		uc.metrics.SyncCycleTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	if remaining, err := uc.PendingCount(ctx); err == nil {
		uc.log.Infof("sync cycle completed: flushed=%d, pending=%d", flushed, remaining)
	}
	return nil
}

// ForceSyncAll 与 SyncPendingCredits 相同的落库算法，没有调度触发也没有
// 外层重试上限：循环直到待落库数归零或批次为空。
// 由恢复协调器和管理端强制同步调用；落库出错直接返回（调用方记日志并继续）
func (uc *CreditSyncUseCase) ForceSyncAll(ctx context.Context) error {
	for {
		count, err := uc.PendingCount(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		batch, err := uc.pending.GetPendingBatch(ctx, uc.conf.SyncBatchSize)
		if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodePendingFetchFailed)
		}
		if len(batch) == 0 {
			// 索引里只剩损坏的记录，留给告警处理
			uc.log.Warnf("force sync stopped: %d pending entries not retrievable", count)
			return nil
		}
		if err := uc.flushBatch(ctx, batch); err != nil {
			return err
		}
	}
}

// flushBatch 落库单个批次：持久化流水 + 聚合扣减，成功后删除待落库记录
func (uc *CreditSyncUseCase) flushBatch(ctx context.Context, batch []*PendingCreditUsage) error {
	batchID := uuid.New().String()
	inserted, err := uc.usage.FlushBatch(ctx, batchID, batch)
	if err != nil {
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSyncFlushFailed)
	}

	trackingIDs := make([]string, 0, len(batch))
	for _, record := range batch {
		trackingIDs = append(trackingIDs, record.TrackingID)
	}
	if err := uc.pending.RemovePendingBatch(ctx, trackingIDs); err != nil {
		// 流水已持久化，删除失败只造成重放，FlushBatch 会按 trackingId 去重
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodePendingRemoveFailed)
	}

	if uc.metrics != nil {
		uc.metrics.SyncRecordsTotal.Add(float64(inserted))
	}
	uc.log.Infof("batch flushed: batch_id=%s, records=%d, inserted=%d", batchID, len(batch), inserted)
	return nil
}
