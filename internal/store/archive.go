package store

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/studymaster/internal/model"
)

const maxEntrySize = 32 << 20

// ExportSubject writes a zip archive of the subject directory to w. Entry
// names are "<subject>/<relative path>".
func (s *Store) ExportSubject(name string, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := s.subjectDir(name)
	if err != nil {
		return err
	}
	name = filepath.Base(dir)

	zw := zip.NewWriter(w)
	if _, err := zw.Create(name + "/"); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &model.StorageError{Op: "walk", Path: p, Err: walkErr}
		}
		if p == dir || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		entry := name + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(entry + "/")
			return err
		}
		// Skip half-written temp files from an interrupted save.
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		return addFile(zw, p, entry)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	slog.Info("exported subject", "name", name)
	return nil
}

func addFile(zw *zip.Writer, src, entry string) error {
	f, err := os.Open(src)
	if err != nil {
		return &model.StorageError{Op: "open", Path: src, Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return &model.StorageError{Op: "stat", Path: src, Err: err}
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = entry
	hdr.Method = zip.Deflate
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

// ImportArchive unpacks a subject archive into the repository. Each subject
// in the archive fully replaces an existing subject of the same name. Every
// subject is extracted before any is swapped in, so a bad entry leaves the
// repository untouched. It returns the imported subject names.
func (s *Store) ImportArchive(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: archive: %v", model.ErrCorruptData, err)
	}

	plan, err := planImport(zr.File)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: archive holds no subject", model.ErrCorruptData)
	}

	names := make([]string, 0, len(plan))
	for name := range plan {
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]string, len(names))
	defer func() {
		for _, dir := range staged {
			_ = os.RemoveAll(dir)
		}
	}()
	for _, name := range names {
		dir, err := s.stageSubject(plan[name])
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
		staged[name] = dir
	}

	installed := make([]string, 0, len(names))
	for _, name := range names {
		if err := s.swapSubject(name, staged[name]); err != nil {
			return installed, fmt.Errorf("install %s: %w", name, err)
		}
		delete(staged, name)
		installed = append(installed, name)
		slog.Info("imported subject", "name", name, "files", len(plan[name].files))
	}
	return installed, nil
}

type importEntry struct {
	dirs  []string
	files map[string]*zip.File
}

// planImport groups archive entries by top-level subject and rejects
// anything that would land outside a subject directory.
func planImport(files []*zip.File) (map[string]*importEntry, error) {
	plan := make(map[string]*importEntry)
	for _, f := range files {
		name := strings.ReplaceAll(f.Name, `\`, "/")
		if strings.HasPrefix(name, "/") || path.IsAbs(name) {
			return nil, fmt.Errorf("%w: absolute entry %q", model.ErrCorruptData, f.Name)
		}
		for _, part := range strings.Split(name, "/") {
			if part == ".." {
				return nil, fmt.Errorf("%w: entry %q escapes the repository", model.ErrCorruptData, f.Name)
			}
		}

		top, rest, _ := strings.Cut(name, "/")
		subject, err := ValidName(top)
		if err != nil || subject != top {
			return nil, fmt.Errorf("%w: entry %q is not inside a subject directory", model.ErrCorruptData, f.Name)
		}
		e, ok := plan[subject]
		if !ok {
			e = &importEntry{files: make(map[string]*zip.File)}
			plan[subject] = e
		}

		rest = strings.Trim(path.Clean("/"+rest), "/")
		mode := f.Mode()
		switch {
		case f.FileInfo().IsDir():
			if rest != "" {
				e.dirs = append(e.dirs, rest)
			}
		case !mode.IsRegular():
			slog.Warn("skipping non-regular archive entry", "entry", f.Name)
		case rest == "":
			return nil, fmt.Errorf("%w: entry %q is not inside a subject directory", model.ErrCorruptData, f.Name)
		default:
			e.files[rest] = f
		}
	}
	return plan, nil
}

// stageSubject extracts one subject into a fresh staging directory under
// the root and returns its path.
func (s *Store) stageSubject(e *importEntry) (string, error) {
	staging := filepath.Join(s.root, ".import-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return "", &model.StorageError{Op: "mkdir", Path: staging, Err: err}
	}

	for _, d := range e.dirs {
		p := filepath.Join(staging, filepath.FromSlash(d))
		if err := os.MkdirAll(p, 0o755); err != nil {
			_ = os.RemoveAll(staging)
			return "", &model.StorageError{Op: "mkdir", Path: p, Err: err}
		}
	}
	for rel, f := range e.files {
		if err := extractFile(f, filepath.Join(staging, filepath.FromSlash(rel))); err != nil {
			_ = os.RemoveAll(staging)
			return "", err
		}
	}
	return staging, nil
}

// swapSubject replaces the subject directory with a staged one.
func (s *Store) swapSubject(name, staging string) error {
	dest := filepath.Join(s.root, name)
	if err := os.RemoveAll(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &model.StorageError{Op: "remove", Path: dest, Err: err}
	}
	if err := os.Rename(staging, dest); err != nil {
		return &model.StorageError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &model.StorageError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %q: %v", model.ErrCorruptData, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &model.StorageError{Op: "create", Path: dst, Err: err}
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if cerr := out.Close(); err == nil && cerr != nil {
		return &model.StorageError{Op: "close", Path: dst, Err: cerr}
	}
	if err != nil {
		return fmt.Errorf("%w: read entry %q: %v", model.ErrCorruptData, f.Name, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("%w: entry %q exceeds %d bytes", model.ErrCorruptData, f.Name, maxEntrySize)
	}
	return nil
}
