package app

import (
	"database/sql"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"copbot/internal/config"
	"copbot/internal/storage/sqlite"
)

// StartPruneScheduler runs the retention sweep on the configured cron
// schedule. LoadConfig already validated the expression.
func StartPruneScheduler(cfg config.Config, db *sql.DB) {
	sched, err := cron.ParseStandard(cfg.PruneSchedule)
	if err != nil {
		log.Printf("Invalid prune_schedule '%s': %v, pruning disabled", cfg.PruneSchedule, err)
		return
	}
	log.Printf("Retention pruning scheduled (cron: %s), keeping %d summaries / %d alerts / %d allocations",
		cfg.PruneSchedule, cfg.MaxSummaries, cfg.MaxAlerts, cfg.MaxAllocations)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next prune at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			removed, err := sqlite.Prune(db, cfg.MaxSummaries, cfg.MaxAlerts, cfg.MaxAllocations)
			if err != nil {
				log.Printf("Prune error: %v", err)
				continue
			}
			log.Printf("Prune removed %d records", removed)
		}
	}()
}
