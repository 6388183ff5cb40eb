package models

import "time"

// ScheduleEntry is one pending (or sent) message slot for a user. The
// concrete table is chosen per kind via Kind.ScheduleTable; (user_id, step)
// is unique within each table. DueAt never changes after creation.
type ScheduleEntry struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID int64     `gorm:"not null" json:"user_id"`
	Step   int       `gorm:"not null" json:"step"`
	DueAt  time.Time `gorm:"not null" json:"due_at"`
	Sent   bool      `gorm:"not null;default:false" json:"sent"`

	CreatedAt time.Time `json:"created_at"`
}
