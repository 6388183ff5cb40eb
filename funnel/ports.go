package funnel

import (
	"time"

	"funnelbot/models"
)

// Clock abstracts time for the services so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Tagger appends per-user tracking parameters to URLs. Pure.
type Tagger interface {
	TagURL(raw string, userID int64) string
	TagText(text string, userID int64) string
}

// KeyboardButton is one inline button. Exactly one of URL or CallbackData
// is set.
type KeyboardButton struct {
	Text         string
	URL          string
	CallbackData string
}

// MediaItem is one outgoing media attachment.
type MediaItem struct {
	Kind string // models.MediaPhoto or models.MediaVideo
	Ref  string // platform file id or URL
}

// Sink is the outbound chat-platform surface the dispatcher writes to.
type Sink interface {
	SendText(userID int64, text string, kb []KeyboardButton) error
	SendPhoto(userID int64, ref, caption string, kb []KeyboardButton) error
	SendVideo(userID int64, ref, caption string, kb []KeyboardButton) error
	SendMediaGroup(userID int64, items []MediaItem, caption string) error
	ClearReplyKeyboard(userID int64) error
}

// Store is the persistence port for the funnel core. Implemented by the
// store package over Postgres; tests use in-memory fakes.
type Store interface {
	UpsertUser(id int64, username, displayName string) error
	GetUser(id int64) (*models.User, error)
	MarkEngaged(id int64) error
	// MarkPaid sets the paid flags and, in the same transaction, deletes
	// the user's unsent funnel schedule entries.
	MarkPaid(id int64, amount int64, until, at time.Time) error
	MarkExpired(id int64) error
	Deactivate(id int64) error

	GetTemplate(kind models.Kind, step int) (*models.MessageTemplate, error)
	ListTemplates(kind models.Kind) ([]models.MessageTemplate, error)
	GetButtons(kind models.Kind, step int) ([]models.Button, error)
	GetAlbum(kind models.Kind, step int) ([]models.AlbumItem, error)

	// Enroll writes one schedule row per template of the kind, with
	// due_at = anchor + delay. Idempotent on (user, step).
	Enroll(userID int64, kind models.Kind, anchor time.Time) error
	// DueEntries returns unsent entries due by now for users matching the
	// kind's eligibility predicate, ordered by due_at ascending.
	DueEntries(kind models.Kind, now time.Time, limit int) ([]models.ScheduleEntry, error)
	// MarkSent flips sent=false to true. Returns ErrStoreConflict when the
	// entry was already consumed.
	MarkSent(kind models.Kind, entryID uint) error
	PurgeUnsent(userID int64, kind models.Kind) (int64, error)
	PeekNextUnsent(userID int64, kind models.Kind) (*models.ScheduleEntry, error)

	LogDelivery(userID int64, kind models.Kind, step int, at time.Time) error
	LogClick(userID int64, kind models.Kind, step int, buttonKind, buttonText string, at time.Time) error
	LastDeliveredStep(userID int64, kind models.Kind) (int, error)

	ExpiredOn(date time.Time) ([]models.User, error)
	Setting(key string) (string, error)
	PruneLogs(olderThan time.Time) (int64, error)
}

// EligibleFor reports whether a user may receive dispatches of a kind.
func EligibleFor(kind models.Kind, u *models.User) bool {
	if u == nil || !u.Active {
		return false
	}
	switch kind {
	case models.KindFunnel:
		return u.Engaged && !u.Paid
	case models.KindPaid:
		return u.Paid
	case models.KindMass:
		return u.Engaged
	}
	return false
}
