package domain

import "time"

// Role values assignable to an account. Stored as plain strings so
// operators can introduce new roles without a schema change.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account is the domain model for a registered user of the service.
// Email doubles as the account's token subject.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorities derives the authority strings granted by a role.
func Authorities(role string) []string {
	if role == "" {
		return nil
	}
	return []string{"ROLE_" + role}
}
