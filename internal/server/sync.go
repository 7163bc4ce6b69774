package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
)

// SyncServer runs the periodic credit sync as an app server.
// Every instance schedules the job; a fleet-wide named lock ensures only one
// instance flushes at a time. The lock expiry is the maximum hold (a crashed
// holder self-heals when it expires) and the minimum hold keeps a fast no-op
// run from handing the lock straight to another instance.
//
// Recovery runs inside Start/Stop so ordering is enforced: startup flushes
// leftovers and seeds the cache before the first scheduled cycle; shutdown
// stops the schedule before the final best-effort flush.
type SyncServer struct {
	cron     *cron.Cron
	sync     *biz.CreditSyncUseCase
	recovery *biz.CreditRecoveryUseCase
	rs       *redsync.Redsync
	conf     *biz.CreditConfig
	log      *log.Helper
	metrics  *metrics.CreditMetrics
}

// NewSyncServer creates the sync scheduler server
func NewSyncServer(
	sync *biz.CreditSyncUseCase,
	recovery *biz.CreditRecoveryUseCase,
	rs *redsync.Redsync,
	conf *biz.CreditConfig,
	logger log.Logger,
) *SyncServer {
	return &SyncServer{
		cron:     cron.New(),
		sync:     sync,
		recovery: recovery,
		rs:       rs,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}
}

// Start runs startup recovery and schedules the sync job
func (s *SyncServer) Start(ctx context.Context) error {
	s.recovery.OnStartup(ctx)

	if s.conf.Mode != constants.ModeRedisBatch || !s.conf.SyncEnabled {
		s.log.Info("credit sync scheduler disabled")
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.conf.SyncInterval)
	if _, err := s.cron.AddFunc(spec, s.runLocked); err != nil {
		return fmt.Errorf("schedule credit sync failed: %w", err)
	}
	s.cron.Start()
	s.log.Infof("credit sync scheduler started: interval=%s, batch_size=%d, retry_count=%d",
		s.conf.SyncInterval, s.conf.SyncBatchSize, s.conf.SyncRetryCount)
	return nil
}

// Stop halts the schedule and flushes remaining pending records
func (s *SyncServer) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn("credit sync job forced to stop after timeout")
	}

	s.recovery.OnShutdown(ctx)
	return nil
}

// runLocked executes one sync cycle under the fleet-wide lock
func (s *SyncServer) runLocked() {
	mutex := s.rs.NewMutex(constants.RedisKeySyncLock,
		redsync.WithExpiry(s.conf.LockExpiry),
		redsync.WithTries(1),
	)

	lockStart := time.Now()
	if err := mutex.Lock(); err != nil {
		if errors.Is(err, redsync.ErrFailed) {
			// another instance holds the lock for this cycle
			if s.metrics != nil {
				s.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultBusy).Inc()
			}
			return
		}
		if s.metrics != nil {
			s.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultError).Inc()
		}
		s.log.Errorf("sync lock acquisition failed: %v", err)
		return
	}
	if s.metrics != nil {
		s.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultAcquired).Inc()
		s.metrics.LockAcquireDuration.Observe(time.Since(lockStart).Seconds())
	}

	held := time.Now()
	defer func() {
		// enforce the minimum hold before releasing
		if remaining := s.conf.LockMinHold - time.Since(held); remaining > 0 {
			time.Sleep(remaining)
		}
		if ok, err := mutex.Unlock(); !ok || err != nil {
			s.log.Warnf("sync lock release failed (expiry will self-heal): %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.conf.LockExpiry)
	defer cancel()

	if err := s.sync.SyncPendingCredits(ctx); err != nil {
		s.log.Errorf("scheduled sync cycle failed: %v", err)
	}
}
