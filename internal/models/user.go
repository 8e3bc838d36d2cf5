package models

import (
	"time"
)

// User is the identity the broadcasting core consumes. The wider account
// management surface lives elsewhere; this service only reads users to
// verify tokens and to describe presence-channel members.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"column:email;size:255;not null;unique" json:"email"`
	FullName  string    `gorm:"column:full_name;size:255" json:"name"`
	IsActive  bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
