package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/studymaster/internal/model"
)

// Report builds an export-ready summary of a subject: bank size, the last
// limit stats entries (all when limit <= 0) and every wrong note.
func (s *Store) Report(name string, limit int) (model.SubjectReport, error) {
	bank, err := s.LoadBank(name)
	if err != nil {
		return model.SubjectReport{}, fmt.Errorf("load bank: %w", err)
	}
	results, err := s.RecentResults(name, limit)
	if err != nil {
		return model.SubjectReport{}, fmt.Errorf("load stats: %w", err)
	}
	keys, err := s.ListNotes(name)
	if err != nil {
		return model.SubjectReport{}, fmt.Errorf("list notes: %w", err)
	}

	notes := make([]model.NoteReport, 0, len(keys))
	for _, key := range keys {
		records, err := s.ReadNote(name, key)
		if err != nil {
			return model.SubjectReport{}, fmt.Errorf("read note %s: %w", key, err)
		}
		notes = append(notes, model.NoteReport{Key: key, Records: records})
	}

	subject, _ := ValidName(name)
	return model.SubjectReport{
		Subject:       subject,
		ExportedAt:    time.Now().UTC(),
		QuestionCount: len(bank),
		Results:       results,
		Notes:         notes,
	}, nil
}
