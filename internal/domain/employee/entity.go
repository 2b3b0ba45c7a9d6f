package employee

import "time"

type Employee struct {
	ID           string
	Code         string
	FullName     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
