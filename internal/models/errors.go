package models

import "github.com/pkg/errors"

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreUnavailable    = errors.New("store unavailable")
	// ErrSchemaAbsent means the target database or the orders table does not exist yet.
	ErrSchemaAbsent = errors.New("schema absent")
)
