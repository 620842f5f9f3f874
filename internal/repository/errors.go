package repository

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by Create when the email is already taken.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrMultipleAccounts means the backing data holds more than one record
	// for an email. Only a legacy file store can get into this state.
	ErrMultipleAccounts = errors.New("multiple accounts share this email")
	// ErrInvalidEmail rejects emails that are not valid UTF-8. JSON cannot
	// carry them without rewriting the bytes.
	ErrInvalidEmail = errors.New("email is not valid UTF-8")
)
