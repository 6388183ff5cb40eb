package worker

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"funnelbot/funnel"
	"funnelbot/models"
)

// Sender delivers one schedule entry. Satisfied by *funnel.Dispatcher.
type Sender interface {
	DispatchEntry(kind models.Kind, entry models.ScheduleEntry) error
}

// DispatchWorker polls each sequence for due schedule entries and pushes
// them through the dispatcher, pacing sends to respect platform limits.
type DispatchWorker struct {
	Store      funnel.Store
	Sender     Sender
	Clock      funnel.Clock
	Logger     *log.Logger
	Interval   time.Duration
	SendPause  time.Duration
	BatchLimit int

	sleep func(time.Duration)
}

func NewDispatchWorker(store funnel.Store, sender Sender, clock funnel.Clock, logger *log.Logger, interval, sendPause time.Duration, batchLimit int) *DispatchWorker {
	return &DispatchWorker{
		Store:      store,
		Sender:     sender,
		Clock:      clock,
		Logger:     logger,
		Interval:   interval,
		SendPause:  sendPause,
		BatchLimit: batchLimit,
		sleep:      time.Sleep,
	}
}

func (dw *DispatchWorker) Start(ctx context.Context) {
	dw.Logger.Println("Dispatch worker started")

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Dispatch worker shutting down...")
			return
		case <-ticker.C:
			dw.RunTick(ctx)
		}
	}
}

// RunTick processes one batch per dispatchable kind. Entries that fail
// transiently stay unsent and come back on the next tick.
func (dw *DispatchWorker) RunTick(ctx context.Context) {
	now := dw.Clock.Now()
	for _, kind := range models.DispatchKinds {
		entries, err := dw.Store.DueEntries(kind, now, dw.BatchLimit)
		if err != nil {
			dw.Logger.Printf("Error fetching due %s entries: %v", kind, err)
			sentry.CaptureException(err)
			continue
		}

		for i, entry := range entries {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if i > 0 {
				dw.sleep(dw.SendPause)
			}
			if err := dw.Sender.DispatchEntry(kind, entry); err != nil {
				dw.Logger.Printf("Error dispatching %s step %d to user %d: %v", kind, entry.Step, entry.UserID, err)
			}
		}
	}
}
