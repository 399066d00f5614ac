package filestore

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"galerie/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const chunkSize = 4096

// e.g. 217d4814-58c0-49e1-877f-f84a17323df4.png
var nameRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]{2,4}$`)

// ValidName reports whether name looks like a name generated by Save.
func ValidName(name string) bool {
	return nameRegex.MatchString(name)
}

type Option func(*LocalImageStore)

// WithFs replaces the filesystem the store writes to.
func WithFs(fs afero.Fs) Option {
	return func(s *LocalImageStore) {
		s.fs = fs
	}
}

// WithNameGenerator replaces the random UUID source used for new names.
func WithNameGenerator(gen func() string) Option {
	return func(s *LocalImageStore) {
		s.newID = gen
	}
}

// WithMaxBytes limits the size of a single upload. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(s *LocalImageStore) {
		s.maxBytes = n
	}
}

// LocalImageStore implements ImageStore in a single flat directory.
type LocalImageStore struct {
	fs       afero.Fs
	root     string
	newID    func() string
	maxBytes int64
}

func NewLocalImageStore(root string, opts ...Option) (*LocalImageStore, error) {
	s := &LocalImageStore{
		fs:    afero.NewOsFs(),
		root:  root,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return s, nil
}

func (s *LocalImageStore) Save(r io.Reader, contentType string) (string, error) {
	ext, err := ExtensionFor(contentType)
	if err != nil {
		return "", err
	}
	name := s.newID() + "." + ext

	// Write to temporary file first
	tmp, err := afero.TempFile(s.fs, s.root, "upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	// Some filesystems rename open handles too, so keep the temp name.
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	written, err := copyChunks(tmp, src)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", models.ErrTooLarge, s.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := s.fs.Rename(tmpName, s.path(name)); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}
	committed = true

	return name, nil
}

func (s *LocalImageStore) Open(name string) (io.ReadCloser, int64, error) {
	// Only names we could have generated are looked up, which also keeps
	// lookups inside root.
	if !ValidName(name) {
		return nil, 0, models.ErrNotFound
	}

	f, err := s.fs.Open(s.path(name))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, models.ErrNotFound
	}

	return f, info.Size(), nil
}

func (s *LocalImageStore) path(name string) string {
	return filepath.Join(s.root, name)
}

// copyChunks copies src to dst in chunkSize pieces until src reports EOF.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
