package domain

import "time"

// User represents a registered user of the system. Email is the unique,
// case-sensitive lookup key.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
