package models

import "time"

// User is a chat-platform subscriber moving through the funnel.
// The primary key is the platform-assigned identifier, not a sequence.
type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`

	// Lifecycle flags
	Active  bool `gorm:"not null;default:true" json:"active"`
	Engaged bool `gorm:"not null;default:false" json:"engaged"`
	Paid    bool `gorm:"not null;default:false" json:"paid"`

	PaidUntil  *time.Time `json:"paid_until,omitempty"`
	PaidAmount int64      `gorm:"default:0" json:"paid_amount"` // cents, last payment

	JoinedAt time.Time  `json:"joined_at"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
