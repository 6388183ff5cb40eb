package models

import (
	"fmt"
	"time"
)

// Kind discriminates the independent message sequences. Each kind owns its
// own template, button, album and schedule tables.
type Kind string

const (
	KindFunnel  Kind = "funnel"
	KindPaid    Kind = "paid"
	KindMass    Kind = "mass"
	KindRenewal Kind = "renewal"
)

// Kinds lists every sequence kind, in migration order.
var Kinds = []Kind{KindFunnel, KindPaid, KindMass, KindRenewal}

// DispatchKinds are the kinds the scheduler loop polls for due entries.
var DispatchKinds = []Kind{KindFunnel, KindPaid, KindMass}

func (k Kind) Valid() bool {
	switch k {
	case KindFunnel, KindPaid, KindMass, KindRenewal:
		return true
	}
	return false
}

func (k Kind) TemplateTable() string { return string(k) + "_templates" }
func (k Kind) ButtonTable() string   { return string(k) + "_buttons" }
func (k Kind) AlbumTable() string    { return string(k) + "_albums" }
func (k Kind) ScheduleTable() string { return string(k) + "_schedules" }

const (
	MaxBodyLength   = 4096
	MaxButtonText   = 64
	MaxAlbumItems   = 10
	MaxMediaCaption = 1024
)

// MessageTemplate is one step of a sequence. The concrete table is chosen
// per kind via Kind.TemplateTable.
type MessageTemplate struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Step       int     `gorm:"not null" json:"step"`
	Body       string  `gorm:"type:text;not null" json:"body"`
	PhotoRef   string  `json:"photo_ref"`
	VideoRef   string  `json:"video_ref"`
	DelayHours float64 `gorm:"not null;default:0" json:"delay_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Button is attached to a template step. A non-empty URL makes it a link
// button; an empty URL with MessagesCount >= 1 makes it an advance button.
type Button struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Step          int    `gorm:"not null" json:"step"`
	Text          string `gorm:"size:64;not null" json:"text"`
	URL           string `json:"url"`
	MessagesCount int    `gorm:"default:0" json:"messages_count"`
	Position      int    `gorm:"not null;default:0" json:"position"`
}

const (
	MediaPhoto = "photo"
	MediaVideo = "video"
)

// AlbumItem is one entry of a template's media album (position 1..10).
type AlbumItem struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Step     int    `gorm:"not null" json:"step"`
	Kind     string `gorm:"column:media_kind;not null" json:"kind"`
	Ref      string `gorm:"column:media_ref;not null" json:"ref"`
	Position int    `gorm:"not null" json:"position"`
}

// MaxButtons is the per-step button budget for a kind. Welcome/goodbye
// service messages use the renewal budget.
func MaxButtons(kind Kind) int {
	switch kind {
	case KindFunnel, KindPaid:
		return 3
	case KindRenewal:
		return 5
	case KindMass:
		return 10
	}
	return 3
}

// ValidateAlbum checks an album forms a contiguous 1..k sequence within
// the 10-item platform limit. Items must already be ordered by position.
func ValidateAlbum(items []AlbumItem) error {
	if len(items) > MaxAlbumItems {
		return fmt.Errorf("album has %d items, maximum is %d", len(items), MaxAlbumItems)
	}
	for i, item := range items {
		if item.Position != i+1 {
			return fmt.Errorf("album positions must be contiguous from 1, got %d at index %d", item.Position, i)
		}
		if item.Kind != MediaPhoto && item.Kind != MediaVideo {
			return fmt.Errorf("unknown media kind %q", item.Kind)
		}
	}
	return nil
}
