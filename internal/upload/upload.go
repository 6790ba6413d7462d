// Package upload stores card images on local disk under random names and
// serves back the public path the frontend embeds.
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	dErrors "votedeck/pkg/domain-errors"
)

// MaxSize caps one upload at 5 MiB.
const MaxSize = 5 << 20

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

type Service struct {
	dir        string
	publicBase string
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates the upload directory if needed. publicBase is the URL prefix
// the files are served under, typically "/uploads".
func New(dir, publicBase string, opts ...Option) (*Service, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	s := &Service{
		dir:        dir,
		publicBase: strings.TrimSuffix(publicBase, "/"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the on-disk directory, for the static file route.
func (s *Service) Dir() string {
	return s.dir
}

// Save streams one upload to disk under a fresh random name, preserving
// only the extension of the client's filename. Returns the public URL path.
func (s *Service) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "file type must be jpg, jpeg, png, gif, or webp")
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create upload file")
	}
	defer f.Close()

	// One byte past the cap distinguishes "exactly MaxSize" from "too big".
	written, err := io.Copy(f, io.LimitReader(r, MaxSize+1))
	if err != nil {
		s.remove(path)
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to write upload")
	}
	if written > MaxSize {
		s.remove(path)
		return "", dErrors.New(dErrors.CodeInvalidInput, "file exceeds the 5 MiB limit")
	}
	if written == 0 {
		s.remove(path)
		return "", dErrors.New(dErrors.CodeInvalidInput, "file is empty")
	}

	return s.publicBase + "/" + name, nil
}

func (s *Service) remove(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove rejected upload", "path", path, "error", err)
	}
}
