package types

import "time"

// User represents a registered account in the minishop system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen at registration.
	Username string `json:"username" db:"username"`

	// PasswordHash is the bcrypt digest of the user's password. It is
	// never serialized into API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp at which the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
