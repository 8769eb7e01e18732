package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a record with the same ID already exists.
	ErrDuplicate = errors.New("entity already exists")
)
