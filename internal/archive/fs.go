package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS stores objects as files under a root directory, with a ".meta" sidecar
// holding the content type.
type FS struct {
	root string
}

type fsMeta struct {
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// NewFS returns a filesystem archive rooted at root, creating it if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "./archive"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &FS{root: root}, nil
}

func (a *FS) paths(key string) (string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	data := filepath.Join(a.root, filepath.FromSlash(k))
	return data, data + ".meta", nil
}

// Put writes the object through a temp file and rename so readers never see
// a partial file.
func (a *FS) Put(_ context.Context, key string, data []byte, contentType string) error {
	dataPath, metaPath, err := a.paths(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	meta, err := json.Marshal(fsMeta{ContentType: contentType, Size: len(data)})
	if err != nil {
		return err
	}
	if err := writeFileAtomic(metaPath, meta); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if err := writeFileAtomic(dataPath, data); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func (a *FS) Get(_ context.Context, key string) ([]byte, string, error) {
	dataPath, metaPath, err := a.paths(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, "", err
	}

	var meta fsMeta
	if raw, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}
	return data, meta.ContentType, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
