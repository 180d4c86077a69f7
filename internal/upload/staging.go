package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// Staged is an uploaded image copied to the upload directory. It must be
// released once the request is done with it.
type Staged struct {
	Path string
	Size int64

	once sync.Once
	err  error
}

// Stage copies r into a uniquely named file under dir. The original file
// name only contributes its extension.
func Stage(dir string, r io.Reader, filename string) (*Staged, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filepath.Base(filename)))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	return &Staged{Path: path, Size: n}, nil
}

// ReadAll returns the staged bytes
func (s *Staged) ReadAll() ([]byte, error) {
	return os.ReadFile(s.Path)
}

// Release deletes the staged file. It is safe to call more than once.
func (s *Staged) Release() error {
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.err = err
			log.WithError(err).WithField("path", s.Path).Warn("upload.release.failed")
		}
	})
	return s.err
}

// With stages r, hands the staged file to fn and releases it on every exit
// path, including panics in fn.
func With(dir string, r io.Reader, filename string, fn func(*Staged) error) error {
	staged, err := Stage(dir, r, filename)
	if err != nil {
		return err
	}
	defer staged.Release()
	return fn(staged)
}
