package models

import "time"

// Subscriber is an email address signed up for channel announcements.
type Subscriber struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	SubscribedAt time.Time `gorm:"autoCreateTime" json:"subscribed_at"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}
