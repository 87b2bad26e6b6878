// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. PasswordHash is never serialized and is only loaded
// by the queries that need it for authentication.
type User struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	PasswordHash   string
	AccountCreated time.Time
	AccountUpdated time.Time

	Verified bool
	// VerificationToken and VerificationExpires are either both set or both nil.
	VerificationToken   *string
	VerificationExpires *time.Time
}

// UserUpdate lists the mutable fields of an account. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
	UpdatedAt    time.Time
}
