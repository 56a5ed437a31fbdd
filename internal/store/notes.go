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

const (
	notePrefix       = "wrongnote_"
	legacyNotePrefix = "오답노트_"
	noteExt          = ".txt"
	noteKeyLayout    = "20060102_150405"
	maxNoteSuffix    = 99
)

var (
	noteHeaderRule = strings.Repeat("=", 50)
	noteBlockRule  = strings.Repeat("-", 50)
)

// CreateNote writes a wrong note under an explicit key. It fails with
// ErrArtifactExists if the key is already taken.
func (s *Store) CreateNote(subject, key string, note model.WrongNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createNote(subject, key, note)
}

func (s *Store) createNote(subject, key string, note model.WrongNote) error {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return err
	}
	if key == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid note key %q", key)
	}
	if _, err := os.Stat(filepath.Join(dir, legacyNotePrefix+key+noteExt)); err == nil {
		return fmt.Errorf("%w: %s", model.ErrArtifactExists, key)
	}

	path := filepath.Join(dir, notePrefix+key+noteExt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", model.ErrArtifactExists, key)
	}
	if err != nil {
		return &model.StorageError{Op: "create", Path: path, Err: err}
	}
	if _, err := f.Write(renderNote(note, s.labels)); err != nil {
		f.Close()
		_ = os.Remove(path)
		return &model.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.StorageError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// WriteNote stores a note keyed by its timestamp. When another note already
// holds that second, a numeric suffix (_02, _03, ...) is appended.
func (s *Store) WriteNote(subject string, note model.WrongNote) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := note.Taken.Format(noteKeyLayout)
	for i := 1; i <= maxNoteSuffix; i++ {
		key := base
		if i > 1 {
			key = fmt.Sprintf("%s_%02d", base, i)
		}
		err := s.createNote(subject, key, note)
		if errors.Is(err, model.ErrArtifactExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		slog.Info("wrote wrong note", "subject", subject, "key", key, "records", len(note.Records))
		return key, nil
	}
	return "", fmt.Errorf("%w: %s", model.ErrArtifactExists, base)
}

// ListNotes returns the subject's note keys, newest first.
func (s *Store) ListNotes(subject string) ([]string, error) {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &model.StorageError{Op: "readdir", Path: dir, Err: err}
	}

	seen := make(map[string]bool)
	keys := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := noteKey(e.Name())
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// ReadNote parses the wrong records stored under key.
func (s *Store) ReadNote(subject, key string) ([]model.WrongRecord, error) {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return nil, err
	}
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, fmt.Errorf("%w: %q", model.ErrNoteNotFound, key)
	}
	for _, prefix := range []string{notePrefix, legacyNotePrefix} {
		path := filepath.Join(dir, prefix+key+noteExt)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &model.StorageError{Op: "read", Path: path, Err: err}
		}
		return parseNote(path, string(data))
	}
	return nil, fmt.Errorf("%w: %s", model.ErrNoteNotFound, key)
}

// ClearNotes deletes every wrong note of the subject.
func (s *Store) ClearNotes(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearNotes(subject)
}

func (s *Store) clearNotes(subject string) error {
	dir, err := s.subjectDir(subject)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &model.StorageError{Op: "readdir", Path: dir, Err: err}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := noteKey(e.Name()); !ok {
			continue
		}
		if err := removeIfExists(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func noteKey(filename string) (string, bool) {
	if !strings.HasSuffix(filename, noteExt) {
		return "", false
	}
	for _, prefix := range []string{notePrefix, legacyNotePrefix} {
		if strings.HasPrefix(filename, prefix) {
			key := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), noteExt)
			return key, key != ""
		}
	}
	return "", false
}

func renderNote(note model.WrongNote, l model.NoteLabels) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", l.Date, note.Taken.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "%s: %d/%d (%.1f%%)\n", l.Result, note.Result.Score, note.Result.Total, note.Result.Percent)
	b.WriteString(noteHeaderRule + "\n")
	for _, r := range note.Records {
		user := r.UserAnswer
		switch user {
		case model.NoAnswer:
			user = l.NoAnswer
		case model.StoppedEarly:
			user = l.StoppedEarly
		}
		fmt.Fprintf(&b, "%s: %s\n", l.Question, flatten(r.Question))
		fmt.Fprintf(&b, "%s: %s\n", l.UserAnswer, flatten(user))
		fmt.Fprintf(&b, "%s: %s\n", l.CorrectAnswer, flatten(r.CorrectAnswer))
		b.WriteString(noteBlockRule + "\n")
	}
	return []byte(b.String())
}

func flatten(v string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(v)
}

// parseNote reads the blocks after the header rule. Field lines are
// "label: value", so notes written in any language parse the same way.
func parseNote(path, text string) ([]model.WrongRecord, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if line == noteHeaderRule {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, model.Corrupt(path, errors.New("missing header rule"))
	}

	records := []model.WrongRecord{}
	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		rec, err := parseBlock(block)
		if err != nil {
			return model.Corrupt(path, err)
		}
		records = append(records, rec)
		block = nil
		return nil
	}
	for _, line := range lines[start:] {
		if line == noteBlockRule {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		block = append(block, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseBlock(lines []string) (model.WrongRecord, error) {
	if len(lines) != 3 {
		return model.WrongRecord{}, fmt.Errorf("expected 3 field lines, got %d", len(lines))
	}
	var values [3]string
	for i, line := range lines {
		_, v, ok := strings.Cut(line, ": ")
		if !ok {
			if !strings.HasSuffix(line, ":") {
				return model.WrongRecord{}, fmt.Errorf("malformed field line %q", line)
			}
			v = ""
		}
		values[i] = v
	}
	return model.WrongRecord{
		Question:      values[0],
		UserAnswer:    values[1],
		CorrectAnswer: values[2],
	}, nil
}
