package store

import (
	"fmt"
	"path/filepath"

	"github.com/pavelanni/studymaster/internal/model"
)

// AppendResult adds a session result to the end of the subject's stats log.
func (s *Store) AppendResult(subject string, r model.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.subjectDir(subject)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, statsFile)

	results, err := loadResults(path)
	if err != nil {
		return err
	}
	results = append(results, r)
	return writeJSON(path, results)
}

// RecentResults returns the last n results, oldest first. n <= 0 returns all.
func (s *Store) RecentResults(subject string, n int) ([]model.SessionResult, error) {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return nil, err
	}
	results, err := loadResults(filepath.Join(dir, statsFile))
	if err != nil {
		return nil, err
	}
	if n > 0 && len(results) > n {
		results = results[len(results)-n:]
	}
	return results, nil
}

// ClearStats deletes the subject's stats log.
func (s *Store) ClearStats(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearStats(subject)
}

func (s *Store) clearStats(subject string) error {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return err
	}
	return removeIfExists(filepath.Join(dir, statsFile))
}

func loadResults(path string) ([]model.SessionResult, error) {
	var results []model.SessionResult
	if _, err := readJSON(path, &results); err != nil {
		return nil, err
	}
	if i, err := model.ValidateResults(results); err != nil {
		return nil, model.Corrupt(path, fmt.Errorf("entry %d: %w", i, err))
	}
	if results == nil {
		results = []model.SessionResult{}
	}
	return results, nil
}
