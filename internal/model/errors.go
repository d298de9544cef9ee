package model

import "errors"

// Error kinds reported by the core. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("subject not found")
	ErrOutOfRange         = errors.New("value out of range")
	ErrInvalidSession     = errors.New("invalid session")
	ErrUnknownSubject     = errors.New("unknown subject")
	ErrNoEligibleSubjects = errors.New("no eligible subjects")
	ErrCorruptStore       = errors.New("corrupt store")
	ErrDuplicateSubject   = errors.New("subject already exists")
)
