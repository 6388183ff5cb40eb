package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"funnelbot/models"
)

// broadcaster creates a mass sequence step and enrolls the audience.
// Satisfied by *store.Store.
type broadcaster interface {
	CreateMassBroadcast(text string, at time.Time) (int, error)
}

const (
	wizardTTL = 30 * time.Minute

	stateAwaitText = iota
	stateConfirm
)

type wizardState struct {
	state     int
	draft     string
	startedAt time.Time
}

// BroadcastWizard drives the /broadcast chat flow: collect the text,
// show a preview, send on confirmation. One session per admin chat;
// abandoned sessions expire after 30 minutes.
type BroadcastWizard struct {
	mu       sync.Mutex
	sessions map[int64]*wizardState
	store    broadcaster
	now      func() time.Time
}

func NewBroadcastWizard(store broadcaster) *BroadcastWizard {
	return &BroadcastWizard{
		sessions: make(map[int64]*wizardState),
		store:    store,
		now:      time.Now,
	}
}

// Begin starts (or restarts) a session and returns the prompt.
func (w *BroadcastWizard) Begin(chatID int64) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessions[chatID] = &wizardState{state: stateAwaitText, startedAt: w.now()}
	return "Send me the broadcast text, or /cancel to abort."
}

// Cancel drops the session. Returns false when none was active.
func (w *BroadcastWizard) Cancel(chatID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[chatID]; !ok {
		return false
	}
	delete(w.sessions, chatID)
	return true
}

// Active reports whether the chat has a live session.
func (w *BroadcastWizard) Active(chatID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[chatID]
	return ok && w.now().Sub(s.startedAt) < wizardTTL
}

// HandleMessage advances the session with the admin's input and returns
// the reply to show.
func (w *BroadcastWizard) HandleMessage(chatID int64, text string) string {
	w.mu.Lock()
	s, ok := w.sessions[chatID]
	if !ok || w.now().Sub(s.startedAt) >= wizardTTL {
		delete(w.sessions, chatID)
		w.mu.Unlock()
		return ""
	}

	switch s.state {
	case stateAwaitText:
		text = strings.TrimSpace(text)
		if text == "" {
			w.mu.Unlock()
			return "The broadcast text cannot be empty. Try again or /cancel."
		}
		if len([]rune(text)) > models.MaxBodyLength {
			w.mu.Unlock()
			return fmt.Sprintf("That is too long (%d characters, limit %d). Try again or /cancel.", len([]rune(text)), models.MaxBodyLength)
		}
		s.draft = text
		s.state = stateConfirm
		w.mu.Unlock()
		return "Preview:\n\n" + text + "\n\nReply \"send\" to broadcast now, or /cancel."

	case stateConfirm:
		if !strings.EqualFold(strings.TrimSpace(text), "send") {
			w.mu.Unlock()
			return "Reply \"send\" to broadcast, or /cancel."
		}
		draft := s.draft
		delete(w.sessions, chatID)
		w.mu.Unlock()

		count, err := w.store.CreateMassBroadcast(draft, w.now())
		if err != nil {
			return "Broadcast failed: " + err.Error()
		}
		return fmt.Sprintf("Broadcast queued for %d recipients.", count)
	}

	w.mu.Unlock()
	return ""
}

// StartSweeper evicts expired sessions in the background.
func (w *BroadcastWizard) StartSweeper(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.sweep()
			}
		}
	}()
}

func (w *BroadcastWizard) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	for chatID, s := range w.sessions {
		if now.Sub(s.startedAt) >= wizardTTL {
			delete(w.sessions, chatID)
		}
	}
}
