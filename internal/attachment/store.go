// Package attachment stores files uploaded with tickets. The board only keeps
// the returned path; bytes never go through the database.
package attachment

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// ErrUnavailable marks an attachment whose file is no longer on disk.
var ErrUnavailable = stderrors.New("attachment unavailable")

const (
	timestampLayout = "20060102T150405"
	filePerms       = 0644
)

// Store saves attachments under a single directory.
type Store struct {
	dir     string
	allowed map[string]bool
	now     func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created on first save.
// When allowedExt is given only files with one of those extensions (matched
// case-insensitively, with or without the leading dot) are accepted.
func NewStore(dir string, allowedExt ...string) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, ext := range allowedExt {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if s.allowed == nil {
			s.allowed = make(map[string]bool)
		}
		s.allowed[ext] = true
	}
	return s
}

// Check reports a Validation error when name's extension is not accepted.
func (s *Store) Check(name string) error {
	if s.allowed == nil {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if s.allowed[ext] {
		return nil
	}
	accepted := make([]string, 0, len(s.allowed))
	for e := range s.allowed {
		accepted = append(accepted, e)
	}
	sort.Strings(accepted)
	return werrors.Validation("attachment type %q is not accepted", filepath.Ext(name)).
		WithSuggestion(fmt.Sprintf("Accepted types: %s", strings.Join(accepted, ", ")))
}

// Dir returns the directory attachments are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes r to a new file named <timestamp>-<id>-<base of name> and
// returns its path. The file either appears complete or not at all.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	if err := s.Check(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", werrors.WrapAttachment(err, "failed to create uploads directory")
	}

	path := filepath.Join(s.dir, s.fileName(name))
	if err := atomic.WriteFile(path, r); err != nil {
		return "", werrors.WrapAttachment(err, "failed to write attachment %s", filepath.Base(path))
	}
	// atomic.WriteFile leaves the temp file's restrictive mode in place.
	if err := os.Chmod(path, filePerms); err != nil {
		os.Remove(path)
		return "", werrors.WrapAttachment(err, "failed to set attachment permissions")
	}
	return path, nil
}

func (s *Store) fileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" {
		base = "attachment"
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return s.now().Format(timestampLayout) + "-" + id + "-" + base
}

// Open opens a stored attachment for reading. A missing file yields an
// AttachmentIO error wrapping ErrUnavailable.
func (s *Store) Open(path string) (*os.File, error) {
	if path == "" {
		return nil, werrors.WrapAttachment(ErrUnavailable, "ticket has no attachment")
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, werrors.WrapAttachment(ErrUnavailable, "attachment %s is unavailable", filepath.Base(path))
	}
	if err != nil {
		return nil, werrors.WrapAttachment(err, "failed to open attachment %s", filepath.Base(path))
	}
	return f, nil
}

// Available reports whether path names an existing regular file.
func (s *Store) Available(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes a stored attachment. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return werrors.WrapAttachment(err, "failed to remove attachment %s", filepath.Base(path))
	}
	return nil
}

// OriginalName strips the timestamp and id prefix from a stored path.
func OriginalName(path string) string {
	base := filepath.Base(path)
	parts := strings.SplitN(base, "-", 3)
	if len(parts) == 3 && len(parts[0]) == len(timestampLayout) && len(parts[1]) == 8 {
		return parts[2]
	}
	return base
}
