package repository

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrSelfFollow   = errors.New("cannot follow yourself")
	ErrSelfMessage  = errors.New("cannot message yourself")
	ErrDuplicate    = errors.New("already exists")
)

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}
