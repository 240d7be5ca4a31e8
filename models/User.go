package models

import "gorm.io/gorm"

// User is the directory entity the room subsystem resolves ids against.
// Account management (registration, passwords, sessions) lives in the
// auth service and is not handled here.
type User struct {
	gorm.Model
	Username  string `json:"username" gorm:"size:40;uniqueIndex;not null"`
	Email     string `json:"email" gorm:"size:120;uniqueIndex"`
	AvatarURL string `json:"avatarURL"`
}
