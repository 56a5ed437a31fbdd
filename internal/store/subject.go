package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pavelanni/studymaster/internal/model"
)

// CreateSubject makes an empty subject directory.
func (s *Store) CreateSubject(name string) error {
	name, err := ValidName(name)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.root, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateSubject, name)
		}
		slog.Error("failed to create subject", "name", name, "error", err)
		return &model.StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	slog.Info("created subject", "name", name)
	return nil
}

// DeleteSubject removes the subject and every artifact it holds.
func (s *Store) DeleteSubject(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.subjectDir(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		slog.Error("failed to delete subject", "name", name, "error", err)
		return &model.StorageError{Op: "remove", Path: dir, Err: err}
	}
	slog.Info("deleted subject", "name", name)
	return nil
}

// SubjectExists reports whether a subject directory exists.
func (s *Store) SubjectExists(name string) (bool, error) {
	_, err := s.subjectDir(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrSubjectNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListSubjects returns subject names in alphabetical order.
func (s *Store) ListSubjects() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &model.StorageError{Op: "readdir", Path: s.root, Err: err}
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ResetRecords clears the stats log and all wrong notes. The bank is kept.
func (s *Store) ResetRecords(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clearStats(name); err != nil {
		return err
	}
	if err := s.clearNotes(name); err != nil {
		return err
	}
	slog.Info("reset subject records", "name", name)
	return nil
}
