package model

import (
	"time"
)

// User is a registered account. Online mirrors registry membership and is
// written only by the presence broadcaster.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Online       bool      `json:"online" bson:"online"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// UserSummary is the public projection returned by the user list.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}
