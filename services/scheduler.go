package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartStatusSweep периодически применяет переходы статусов по расписанию.
// Ленивые переходы при каждой операции остаются основным механизмом,
// sweep лишь обновляет турниры, с которыми никто не работает.
func StartStatusSweep(ctx context.Context, tournaments *TournamentService, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			if err := tournaments.AutoUpdateTournamentStatusesByDates(runCtx); err != nil {
				logger.Error("status sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithName("tournament-status-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule status sweep: %w", err)
	}

	sched.Start()
	logger.Info("tournament status sweep started", slog.Duration("interval", interval))
	return sched, nil
}
