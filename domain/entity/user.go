package entity

import (
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	DisplayPicture string    `json:"display_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewUser(id, email, name, displayPicture string) *User {
	now := time.Now()
	return &User{
		ID:             id,
		Email:          email,
		Name:           name,
		DisplayPicture: displayPicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// UpdateProfile overwrites the provider-owned profile fields; the latest login wins.
func (u *User) UpdateProfile(name, displayPicture string) {
	u.Name = name
	u.DisplayPicture = displayPicture
	u.UpdatedAt = time.Now()
}
