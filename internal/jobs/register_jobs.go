package jobs

import (
	"context"
	"log"

	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/ledger"
	"github.com/shpluspower/backend/internal/scheduler"
	"github.com/shpluspower/backend/internal/syncer"
)

// RegisterRecurringJobs registers the profit sweep and the periodic
// reconciliation on the scheduler. The sweep emulates automatic daily
// accrual without requiring the user to be present; the sync keeps the
// shared snapshot and the admin view fresh.
func RegisterRecurringJobs(s scheduler.Scheduler, cfg config.SyncConfig, engine *ledger.Engine, coordinator *syncer.Coordinator) error {
	if err := s.EverySeconds(cfg.SweepIntervalSeconds, "profit_sweep", func() {
		if err := engine.SweepAll(); err != nil {
			log.Printf("profit sweep job failed: %v", err)
		}
	}); err != nil {
		return err
	}

	return s.EverySeconds(cfg.IntervalSeconds, "global_sync", func() {
		if err := coordinator.Sync(context.Background()); err != nil {
			log.Printf("sync job failed: %v", err)
		}
	})
}
