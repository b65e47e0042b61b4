package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeText    = "text"
	TypeProduct = "product"
	TypeOrder   = "order"
)

type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null"      json:"user_id"`
	Title       string     `gorm:"not null"                      json:"title"`
	Message     string     `gorm:"not null"                      json:"message"`
	Type        string     `gorm:"not null;default:text"         json:"type"`
	ReferenceID *string    `json:"reference_id,omitempty"`
	Read        bool       `gorm:"not null;default:false"        json:"read"`
	SenderID    *uuid.UUID `gorm:"type:uuid"                     json:"sender_id,omitempty"`
	SenderName  string     `json:"sender_name,omitempty"`
	CreatedAt   time.Time  `gorm:"index"                         json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// User is the read-only slice of the auth service's users table needed to
// address notifications.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string
	Email    *string
	VIP      bool `gorm:"column:vip"`
	Verified bool
	Role     string
}

func (User) TableName() string {
	return "users"
}
