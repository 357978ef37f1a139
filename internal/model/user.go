// Package model defines database models
package model

import "time"

// User is a registered account. PasswordHash never leaves the store except
// through Credentials.
type User struct {
	ID           string `gorm:"primaryKey"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	// Both are set by a forgot-password request and cleared together when the
	// token is consumed, rolled back or swept after expiring
	ResetTokenHash   *string `gorm:"index"`
	ResetTokenExpiry *time.Time
	Verified         bool `gorm:"default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Public strips every secret from u
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUser is the projection returned by every non-privileged lookup
type PublicUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Verified  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Credentials is only produced for the login path
type Credentials struct {
	User         *PublicUser
	PasswordHash string
}
