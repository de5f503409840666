package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the default location of the console state file.
const DefaultFile = "console.json"

// FileStorage keeps state in a JSON file. The file is re-read on every
// operation so that several console processes sharing it see each
// other's writes; each write replaces the file via rename.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

type fileState struct {
	Values  map[string]string `json:"values"`
	Version int64             `json:"version"`
}

// NewFileStorage returns a FileStorage backed by path. The file is
// created on first write.
func NewFileStorage(path string) *FileStorage {
	if path == "" {
		path = DefaultFile
	}
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (fs *FileStorage) Path() string { return fs.path }

func (fs *FileStorage) Get(_ context.Context, key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.load()
	if err != nil {
		return "", err
	}
	v, ok := st.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (fs *FileStorage) Set(ctx context.Context, values map[string]string) error {
	return fs.Replace(ctx, values, nil)
}

func (fs *FileStorage) Delete(ctx context.Context, keys ...string) error {
	return fs.Replace(ctx, nil, keys)
}

// Replace applies the deletes and writes to one loaded state and saves
// it with a single rename. Nothing is written when nothing changes.
func (fs *FileStorage) Replace(_ context.Context, set map[string]string, del []string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st, err := fs.load()
	if err != nil {
		return err
	}
	changed := len(set) > 0
	for _, k := range del {
		if _, ok := st.Values[k]; ok {
			delete(st.Values, k)
			changed = true
		}
	}
	for k, v := range set {
		st.Values[k] = v
	}
	if !changed {
		return nil
	}
	return fs.save(st)
}

func (fs *FileStorage) load() (*fileState, error) {
	st := &fileState{Values: make(map[string]string)}

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(st); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if st.Values == nil {
		st.Values = make(map[string]string)
	}
	return st, nil
}

func (fs *FileStorage) save(st *fileState) error {
	st.Version++

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(st); err != nil {
		tmp.Close()
		return fmt.Errorf("encode state file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
