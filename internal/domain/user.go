package domain

import "time"

// User is an account that can authenticate and act on issues.
// Disabled users keep their rows so issue history stays intact.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsEnabled    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

