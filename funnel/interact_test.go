package funnel

import (
	"testing"
	"time"

	"funnelbot/models"
)

func newTestInteractions(store *fakeStore, sink *fakeSink) (*Interactions, *fakeClock) {
	d, clock := newTestDispatcher(store, sink)
	e := NewEnrollment(store, d, clock, testLogger())
	i := NewInteractions(store, d, e, clock, time.Second, testLogger())
	i.sleep = func(time.Duration) {}
	return i, clock
}

func TestParseAdvanceToken(t *testing.T) {
	userID, count, err := ParseAdvanceToken("next:42:3")
	if err != nil || userID != 42 || count != 3 {
		t.Fatalf("got (%d, %d, %v), want (42, 3, nil)", userID, count, err)
	}

	for _, bad := range []string{"", "next:", "next:42", "next:x:3", "next:42:0", "next:42:y", "other:42:3"} {
		if _, _, err := ParseAdvanceToken(bad); err == nil {
			t.Errorf("ParseAdvanceToken(%q) accepted malformed token", bad)
		}
	}
}

func TestAdvancePressedDeliversPendingSteps(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(engagedUser(1))
	for step := 1; step <= 4; step++ {
		store.addTemplate(models.KindFunnel, models.MessageTemplate{Step: step, Body: "s"})
	}
	i, clock := newTestInteractions(store, sink)
	if err := store.Enroll(1, models.KindFunnel, clock.now); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	store.delivered = append(store.delivered, models.DeliveryLog{UserID: 1, Kind: "funnel", Step: 2})

	if err := i.AdvancePressed(1, "next:1:2"); err != nil {
		t.Fatalf("AdvancePressed: %v", err)
	}

	if len(sink.sent) != 2 {
		t.Fatalf("delivered %d steps, want 2", len(sink.sent))
	}
	if len(store.clicks) != 1 {
		t.Fatalf("clicks = %+v, want exactly one", store.clicks)
	}
	click := store.clicks[0]
	if click.Step != 2 || click.ButtonKind != models.ButtonKindCallback || click.ButtonText != "next:1:2" {
		t.Errorf("click = %+v", click)
	}
	if store.unsentCount(models.KindFunnel, 1) != 2 {
		t.Errorf("remaining unsent = %d, want 2", store.unsentCount(models.KindFunnel, 1))
	}
}

func TestAdvancePressedNothingPending(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(engagedUser(1))
	i, _ := newTestInteractions(store, sink)

	if err := i.AdvancePressed(1, "next:1:3"); err != nil {
		t.Fatalf("AdvancePressed with empty schedule: %v", err)
	}
	if len(sink.sent) != 0 {
		t.Error("messages sent with nothing pending")
	}
	if len(store.clicks) != 1 {
		t.Error("click must still be logged once")
	}
}

func TestAdvancePressedForeignTokenIgnored(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(engagedUser(1))
	store.addUser(engagedUser(2))
	i, _ := newTestInteractions(store, sink)

	if err := i.AdvancePressed(2, "next:1:2"); err != nil {
		t.Fatalf("foreign token must be ignored, got %v", err)
	}
	if len(store.clicks) != 0 || len(sink.sent) != 0 {
		t.Error("foreign token acted upon")
	}
}

func TestConsentPressed(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(models.User{ID: 1, Active: true})
	store.addTemplate(models.KindFunnel, models.MessageTemplate{Step: 1, Body: "a"})
	i, _ := newTestInteractions(store, sink)

	if err := i.ConsentPressed(1, "I'm in"); err != nil {
		t.Fatalf("ConsentPressed: %v", err)
	}
	if len(store.clicks) != 1 || store.clicks[0].Step != 0 || store.clicks[0].ButtonText != "I'm in" {
		t.Errorf("clicks = %+v", store.clicks)
	}
	if !store.users[1].Engaged {
		t.Error("user not engaged after consent")
	}
	if store.unsentCount(models.KindFunnel, 1) != 1 {
		t.Error("funnel not enrolled after consent")
	}
}

func TestMemberLeft(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(engagedUser(1))
	store.settings[models.SettingGoodbyeEnabled] = "true"
	store.settings[models.SettingGoodbyeMessage] = "sorry to see you go"
	i, _ := newTestInteractions(store, sink)

	if err := i.MemberLeft(1); err != nil {
		t.Fatalf("MemberLeft: %v", err)
	}
	if len(sink.sent) != 1 || sink.sent[0].Text != "sorry to see you go" {
		t.Errorf("goodbye = %+v", sink.sent)
	}
	if store.users[1].Active {
		t.Error("departed user still active")
	}
}

func TestMemberLeftGoodbyeDisabled(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	store.addUser(engagedUser(1))
	i, _ := newTestInteractions(store, sink)

	if err := i.MemberLeft(1); err != nil {
		t.Fatalf("MemberLeft: %v", err)
	}
	if len(sink.sent) != 0 {
		t.Error("goodbye sent while disabled")
	}
	if store.users[1].Active {
		t.Error("departed user still active")
	}
}
