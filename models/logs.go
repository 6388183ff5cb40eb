package models

import "time"

// DeliveryLog records one successful send. Append-only.
type DeliveryLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null" json:"user_id"`
	Kind        string    `gorm:"not null" json:"kind"`
	Step        int       `gorm:"not null" json:"step"`
	DeliveredAt time.Time `gorm:"not null" json:"delivered_at"`
}

const (
	ButtonKindCallback = "callback"
	ButtonKindURL      = "url"
)

// ClickLog records one inbound button interaction. Append-only.
type ClickLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null" json:"user_id"`
	Kind       string    `gorm:"not null" json:"kind"`
	Step       int       `gorm:"not null" json:"step"`
	ButtonKind string    `gorm:"not null" json:"button_kind"`
	ButtonText string    `json:"button_text"`
	ClickedAt  time.Time `gorm:"not null" json:"clicked_at"`
}
