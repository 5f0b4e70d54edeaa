// Package models contains data structures for the blog's domain models.
package models

import (
	"strings"
	"time"
)

// DefaultProfileImage is the media-relative path of the placeholder avatar.
const DefaultProfileImage = "profile_pics/default.jpg"

// User is an account that can author posts and comments.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	Email     string    `gorm:"size:254" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Profile   *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt time.Time `json:"date_joined"`
	UpdatedAt time.Time `json:"-"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Profile holds the avatar and bio of exactly one user.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Image     string    `gorm:"size:255;default:profile_pics/default.jpg" json:"image"`
	Bio       string    `gorm:"size:500" json:"bio"`
	ImageURL  string    `gorm:"-" json:"image_url"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCustomImage reports whether the profile points at an uploaded avatar.
func (p *Profile) HasCustomImage() bool {
	return p.Image != "" && p.Image != DefaultProfileImage
}

// ResolveImageURL fills ImageURL from Image using the given media URL prefix.
func (p *Profile) ResolveImageURL(mediaURL string) {
	img := p.Image
	if img == "" {
		img = DefaultProfileImage
	}
	p.ImageURL = strings.TrimRight(mediaURL, "/") + "/" + img
}
