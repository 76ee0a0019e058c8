package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dao-ledger.backend/pkg/logger"
	"dao-ledger.backend/pkg/utils"
)

type balanceRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// BalanceRefreshJob re-reads every stored wallet's balance from its DAO ledger
type BalanceRefreshJob struct {
	wallets  balanceRefresher
	interval time.Duration
	stop     chan struct{}
}

func NewBalanceRefreshJob(wallets balanceRefresher, interval time.Duration) *BalanceRefreshJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &BalanceRefreshJob{
		wallets:  wallets,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *BalanceRefreshJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting balance refresh job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Balance refresh job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Balance refresh job stopped")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *BalanceRefreshJob) Stop() {
	close(j.stop)
}

func (j *BalanceRefreshJob) refresh(ctx context.Context) {
	runID := utils.GenerateUUIDv7().String()
	start := time.Now()

	changed, err := j.wallets.RefreshAll(ctx)
	if err != nil {
		logger.Warn(ctx, "Balance refresh finished with errors",
			zap.String("run_id", runID),
			zap.Int("changed", changed),
			zap.Error(err),
		)
		return
	}
	if changed > 0 {
		logger.Info(ctx, "Wallet balances refreshed",
			zap.String("run_id", runID),
			zap.Int("changed", changed),
			zap.Duration("took", time.Since(start)),
		)
	}
}
