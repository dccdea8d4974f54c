// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"agentgift-economy/store"

	"github.com/go-co-op/gocron/v2"
)

const LevelReconcileInterval = 10 * time.Minute

// ReconcileLevels rewrites cached levels that drifted from xp.
func ReconcileLevels(ctx context.Context, st store.Store) (int64, error) {
	fixed, err := st.ReconcileLevels(ctx)
	if err != nil {
		log.Printf("[Scheduler] Level reconcile failed: %v", err)
		return 0, err
	}
	if fixed > 0 {
		log.Printf("✅ [Scheduler] Reconciled level on %d account(s)", fixed)
	}
	return fixed, nil
}

// StartLevelReconciler runs ReconcileLevels every interval until the
// returned scheduler is shut down.
func StartLevelReconciler(st store.Store, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = LevelReconcileInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			_, _ = ReconcileLevels(ctx, st)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Printf("⏱️ [Scheduler] Level reconcile every %s", interval)
	return sched, nil
}
