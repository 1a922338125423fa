// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Name         string    `json:"name"`
	Email        string    `gorm:"not null" json:"email"`
	Contact      string    `json:"contact"`
	Password     string    `gorm:"not null" json:"-"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	Posts        []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileImageName returns the stored profile image filename, or "" when unset.
func (u *User) ProfileImageName() string {
	if u == nil || u.ProfileImage == nil {
		return ""
	}
	return *u.ProfileImage
}

// OwnsPost reports whether the post belongs to the user.
func (u *User) OwnsPost(p *Post) bool {
	return u != nil && p != nil && p.UserID == u.ID
}
