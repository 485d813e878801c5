package domain

import "errors"

var (
	// ErrExamNotFound indicates the exam code does not resolve to any exam.
	ErrExamNotFound = errors.New("exam not found")
	// ErrExamNotPublished indicates the exam exists but is still a draft.
	ErrExamNotPublished = errors.New("exam is not published")
	// ErrResultNotFound indicates no attempt row exists for the key.
	ErrResultNotFound = errors.New("student result not found")
	// ErrInvalidAction indicates an unknown teacher action verb.
	ErrInvalidAction = errors.New("invalid teacher action")
)
