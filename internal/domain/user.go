package domain

import "time"

// User is an account known to the auth service.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the public face of a user, searchable by username.
type Profile struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Session is an issued login.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
