package models

import "time"

// User is a registered journal owner. PasswordHash is a bcrypt hash and is
// never serialized back to API clients.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
