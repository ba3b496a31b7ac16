package localfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/core/ports"
)

// Store keeps document bytes on the local filesystem under a base directory.
// Keys are slash-separated relative paths; writes are staged to a temp file
// and renamed so a failed write never leaves a partial object behind.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/documents"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Write(_ context.Context, key string, data io.Reader) (ports.WriteResult, error) {
	path, err := s.resolve(key)
	if err != nil {
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "resolve key", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "create key dir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "stage temp file", err)
	}
	tmpName := tmp.Name()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), data)
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "write bytes", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return ports.WriteResult{}, domain.WrapError(domain.ErrStorageWrite, "publish file", err)
	}

	return ports.WriteResult{
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *Store) Read(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageRead, "resolve key", err)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open file", err)
		}
		return nil, domain.WrapError(domain.ErrStorageRead, "open file", err)
	}
	return f, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return domain.WrapError(domain.ErrStorageWrite, "resolve key", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrStorageWrite, "remove file", err)
	}
	s.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

func (s *Store) List(_ context.Context) ([]ports.StoredObject, error) {
	var objects []ports.StoredObject
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		objects = append(objects, ports.StoredObject{
			Key:        filepath.ToSlash(rel),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageRead, "walk storage dir", err)
	}
	return objects, nil
}

// resolve joins the key under the base path and refuses keys that escape it.
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("key escapes storage root")
	}
	return filepath.Join(s.basePath, cleaned), nil
}

// pruneEmptyDirs removes now-empty parents up to the base path so the
// year/month tree does not accumulate husks.
func (s *Store) pruneEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
