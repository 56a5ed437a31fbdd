package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pavelanni/studymaster/internal/model"
)

const (
	bankFile  = "questions.json"
	statsFile = "stats.json"
)

// Store persists subjects as directories under a repository root.
type Store struct {
	root   string
	labels model.NoteLabels

	// mu serializes every mutation so load-modify-save cycles do not
	// interleave. Reads go without it; files are replaced by rename.
	mu sync.Mutex
}

// New opens (creating if needed) the repository rooted at root.
// Wrong notes are rendered with the given labels.
func New(root string, labels model.NoteLabels) (*Store, error) {
	if root == "" {
		return nil, errors.New("empty repository root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &model.StorageError{Op: "mkdir", Path: root, Err: err}
	}
	return &Store{root: root, labels: labels}, nil
}

// Root returns the repository directory.
func (s *Store) Root() string {
	return s.root
}

// ValidName trims a subject name and checks it can serve as a directory name.
func ValidName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty name", model.ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("%w: %q starts with a dot", model.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q contains a path separator", model.ErrInvalidName, name)
	}
	return name, nil
}

// subjectDir resolves an existing subject's directory.
func (s *Store) subjectDir(subject string) (string, error) {
	name, err := ValidName(subject)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, name)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", model.ErrSubjectNotFound, name)
	}
	if err != nil {
		return "", &model.StorageError{Op: "stat", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", model.ErrSubjectNotFound, name)
	}
	return dir, nil
}

// readJSON decodes path into v. A missing file reports ok=false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &model.StorageError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, model.Corrupt(path, err)
	}
	return true, nil
}

// writeJSON encodes v with the indentation the desktop app used and
// replaces path atomically.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &model.StorageError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &model.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &model.StorageError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &model.StorageError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &model.StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// removeIfExists deletes path, treating absence as success.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return &model.StorageError{Op: "remove", Path: path, Err: err}
}
