package store

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pavelanni/studymaster/internal/model"
)

// LoadBank returns a subject's questions in stored order.
// A subject without a bank file has an empty bank.
func (s *Store) LoadBank(subject string) ([]model.Question, error) {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, bankFile)

	var questions []model.Question
	if _, err := readJSON(path, &questions); err != nil {
		return nil, err
	}
	if i, err := model.ValidateQuestions(questions); err != nil {
		return nil, model.Corrupt(path, fmt.Errorf("entry %d: %w", i, err))
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// SaveBank overwrites a subject's bank.
func (s *Store) SaveBank(subject string, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveBank(subject, questions)
}

func (s *Store) saveBank(subject string, questions []model.Question) error {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return writeJSON(filepath.Join(dir, bankFile), questions)
}

// AddQuestion appends a question after trimming both fields. Empty input is
// ignored and reported with added=false.
func (s *Store) AddQuestion(subject, question, answer string) (bool, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.LoadBank(subject)
	if err != nil {
		return false, err
	}
	bank = append(bank, model.Question{Text: question, Answer: answer})
	if err := s.saveBank(subject, bank); err != nil {
		return false, err
	}
	slog.Info("added question", "subject", subject, "count", len(bank))
	return true, nil
}

// RemoveQuestions deletes the questions at the given positions, indexed
// against the bank before removal. Out-of-range and repeated indices are
// ignored. The remaining bank is returned.
func (s *Store) RemoveQuestions(subject string, indices []int) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.LoadBank(subject)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(indices))
	var valid []int
	for _, i := range indices {
		if i < 0 || i >= len(bank) || seen[i] {
			continue
		}
		seen[i] = true
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return bank, nil
	}

	// Highest first so lower positions stay valid.
	sort.Sort(sort.Reverse(sort.IntSlice(valid)))
	for _, i := range valid {
		bank = append(bank[:i], bank[i+1:]...)
	}

	if err := s.saveBank(subject, bank); err != nil {
		return nil, err
	}
	slog.Info("removed questions", "subject", subject, "removed", len(valid), "remaining", len(bank))
	return bank, nil
}

// ImportQuestions appends a JSON array of {question, answer} objects to the
// bank. Rows with an empty field are skipped. It returns how many were added.
func (s *Store) ImportQuestions(subject string, r io.Reader) (int, error) {
	var incoming []model.Question
	if err := json.NewDecoder(r).Decode(&incoming); err != nil {
		return 0, fmt.Errorf("%w: question import: %v", model.ErrCorruptData, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.LoadBank(subject)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, q := range incoming {
		text, answer := strings.TrimSpace(q.Text), strings.TrimSpace(q.Answer)
		if text == "" || answer == "" {
			continue
		}
		bank = append(bank, model.Question{Text: text, Answer: answer})
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.saveBank(subject, bank); err != nil {
		return 0, err
	}
	slog.Info("imported questions", "subject", subject, "count", added)
	return added, nil
}
