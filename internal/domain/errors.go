package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("task creation session already open")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrEmptyAnalysis    = errors.New("analysis returned no usable proposal")
	ErrNoLists          = errors.New("board returned no lists")
	ErrCardNotFound     = errors.New("card not found")
	ErrInvalidDueDate   = errors.New("invalid due date format")
	ErrNotOwner         = errors.New("operation restricted to the owner")
)
