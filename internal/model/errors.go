package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName      = errors.New("invalid subject name")
	ErrDuplicateSubject = errors.New("subject already exists")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrEmptyBank        = errors.New("question bank is empty")
	ErrInvalidCount     = errors.New("question count must be at least 1")
	ErrInvalidState     = errors.New("exam session already completed")
	ErrCorruptData      = errors.New("corrupt data")
	ErrArtifactExists   = errors.New("artifact already exists")
	ErrNoteNotFound     = errors.New("wrong note not found")
)

// StorageError reports an OS-level failure while touching persisted state.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Corrupt wraps err as ErrCorruptData for the artifact at path.
func Corrupt(path string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrCorruptData, path)
	}
	return fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
}
