package records

import "errors"

var (
	// Validation errors (HTTP 400).
	ErrUsernameTooShort = errors.New("username must be at least 3 characters long")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 5 characters long")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// Duplicate primary key (HTTP 400).
	ErrUserExists = errors.New("user already exists")

	// Credential mismatch. Unknown email and wrong password are deliberately
	// not distinguished (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Missing keys (HTTP 404).
	ErrUserNotFound      = errors.New("user not found")
	ErrActiveBotNotFound = errors.New("active bot not found")
)
