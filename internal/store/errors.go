package store

import "errors"

var (
	// ErrNotFound covers both "does not exist" and "not owned by the
	// caller": scoped lookups must not reveal which one it was.
	ErrNotFound = errors.New("not found")

	// ErrNotApprovable covers unknown id, wrong owner and non-PENDING
	// status for approve/refuse, collapsed for the same reason.
	ErrNotApprovable = errors.New("not approvable")

	ErrUserNotFound   = errors.New("user not found")
	ErrCustomerExists = errors.New("customer exists")
)
