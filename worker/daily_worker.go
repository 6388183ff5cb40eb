package worker

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"

	"funnelbot/funnel"
)

// DailyWorker runs the once-a-day maintenance jobs: subscription expiry
// and log retention.
type DailyWorker struct {
	Enrollment    *funnel.Enrollment
	Store         funnel.Store
	Clock         funnel.Clock
	Logger        *log.Logger
	RetentionDays int

	cron *cron.Cron
}

func NewDailyWorker(enrollment *funnel.Enrollment, store funnel.Store, clock funnel.Clock, logger *log.Logger, retentionDays int) *DailyWorker {
	return &DailyWorker{
		Enrollment:    enrollment,
		Store:         store,
		Clock:         clock,
		Logger:        logger,
		RetentionDays: retentionDays,
	}
}

func (dw *DailyWorker) Start() error {
	dw.cron = cron.New()
	if _, err := dw.cron.AddFunc("@daily", dw.RunRenewals); err != nil {
		return err
	}
	if _, err := dw.cron.AddFunc("@daily", dw.RunRetention); err != nil {
		return err
	}
	dw.cron.Start()
	dw.Logger.Println("Daily worker started")
	return nil
}

func (dw *DailyWorker) Stop() {
	if dw.cron != nil {
		dw.cron.Stop()
	}
}

func (dw *DailyWorker) RunRenewals() {
	if err := dw.Enrollment.RenewalTick(dw.Clock.Now()); err != nil {
		dw.Logger.Printf("Error processing renewals: %v", err)
		sentry.CaptureException(err)
	}
}

func (dw *DailyWorker) RunRetention() {
	cutoff := dw.Clock.Now().AddDate(0, 0, -dw.RetentionDays)
	pruned, err := dw.Store.PruneLogs(cutoff)
	if err != nil {
		dw.Logger.Printf("Error pruning logs: %v", err)
		sentry.CaptureException(err)
		return
	}
	if pruned > 0 {
		dw.Logger.Printf("Pruned %d log rows older than %s", pruned, cutoff.Format(time.DateOnly))
	}
}
