package worker

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"funnelbot/funnel"
	"funnelbot/models"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// stubStore overrides only the methods the worker touches.
type stubStore struct {
	funnel.Store

	due     map[models.Kind][]models.ScheduleEntry
	dueErr  error
	queried []models.Kind
	limits  []int
}

func (s *stubStore) DueEntries(kind models.Kind, now time.Time, limit int) ([]models.ScheduleEntry, error) {
	s.queried = append(s.queried, kind)
	s.limits = append(s.limits, limit)
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	return s.due[kind], nil
}

type recordingSender struct {
	dispatched []models.ScheduleEntry
	kinds      []models.Kind
	err        error
}

func (r *recordingSender) DispatchEntry(kind models.Kind, entry models.ScheduleEntry) error {
	r.kinds = append(r.kinds, kind)
	r.dispatched = append(r.dispatched, entry)
	return r.err
}

func newTestWorker(store *stubStore, sender *recordingSender) *DispatchWorker {
	logger := log.New(io.Discard, "", 0)
	w := NewDispatchWorker(store, sender, fixedClock{now: time.Now()}, logger, time.Minute, time.Millisecond, 100)
	w.sleep = func(time.Duration) {}
	return w
}

func TestRunTickDispatchesAllKinds(t *testing.T) {
	store := &stubStore{due: map[models.Kind][]models.ScheduleEntry{
		models.KindFunnel: {{ID: 1, UserID: 1, Step: 1}, {ID: 2, UserID: 2, Step: 1}},
		models.KindPaid:   {{ID: 3, UserID: 3, Step: 2}},
	}}
	sender := &recordingSender{}

	newTestWorker(store, sender).RunTick(context.Background())

	if len(store.queried) != len(models.DispatchKinds) {
		t.Fatalf("queried kinds = %v, want all dispatch kinds", store.queried)
	}
	if len(sender.dispatched) != 3 {
		t.Fatalf("dispatched %d entries, want 3", len(sender.dispatched))
	}
	for _, limit := range store.limits {
		if limit != 100 {
			t.Errorf("batch limit = %d, want 100", limit)
		}
	}
}

func TestRunTickContinuesPastSendErrors(t *testing.T) {
	store := &stubStore{due: map[models.Kind][]models.ScheduleEntry{
		models.KindFunnel: {{ID: 1, UserID: 1, Step: 1}, {ID: 2, UserID: 2, Step: 1}},
	}}
	sender := &recordingSender{err: errors.New("boom")}

	newTestWorker(store, sender).RunTick(context.Background())

	if len(sender.dispatched) != 2 {
		t.Fatalf("dispatched %d entries, want both despite errors", len(sender.dispatched))
	}
}

func TestRunTickStoreErrorSkipsKind(t *testing.T) {
	store := &stubStore{dueErr: errors.New("db down")}
	sender := &recordingSender{}

	newTestWorker(store, sender).RunTick(context.Background())

	if len(sender.dispatched) != 0 {
		t.Fatal("dispatched entries despite store error")
	}
}

func TestRunTickHonorsCancelledContext(t *testing.T) {
	store := &stubStore{due: map[models.Kind][]models.ScheduleEntry{
		models.KindFunnel: {{ID: 1, UserID: 1, Step: 1}, {ID: 2, UserID: 2, Step: 1}},
	}}
	sender := &recordingSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newTestWorker(store, sender).RunTick(ctx)

	if len(sender.dispatched) != 0 {
		t.Fatalf("dispatched %d entries after cancellation", len(sender.dispatched))
	}
}
