package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openblog/openblog-api/internal/types"
)

// LocalStore writes uploaded files to a directory served statically under a
// public URL prefix. Stored names are upload-millis + "_" + the original
// filename, so references are unique and roughly sortable by upload time.
type LocalStore struct {
	dir          string
	publicPrefix string
	logger       *slog.Logger
}

func NewLocalStore(dir, publicPrefix string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %q: %w", dir, err)
	}
	return &LocalStore{
		dir:          dir,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
		logger:       logger,
	}, nil
}

// Dir returns the directory files are written to, for static serving.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes the file and returns its public reference, e.g.
// "/uploads/1700000000000_cat.png".
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = uuid.NewString()
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), base)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create %q: %w", name, types.ErrStorage)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write %q: %w", name, types.ErrStorage)
	}

	s.logger.DebugContext(ctx, "Stored uploaded file", slog.String("name", name))
	return s.publicPrefix + "/" + name, nil
}

// Remove deletes a previously stored file given its public reference. Used
// as compensating cleanup when a multi-file attach fails partway, and when
// a post is deleted.
func (s *LocalStore) Remove(ctx context.Context, fileURL string) error {
	name := path.Base(fileURL)
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("invalid file reference %q: %w", fileURL, types.ErrStorage)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove %q: %w", name, types.ErrStorage)
	}
	s.logger.DebugContext(ctx, "Removed stored file", slog.String("name", name))
	return nil
}
