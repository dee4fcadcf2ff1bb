package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credential directory.
const DirPerms = 0o700

// fileFormat is the on-disk shape of a credential file.
type fileFormat struct {
	Token *oauth2.Token `json:"token"`
}

// File stores the pair as a JSON file. Writes go to a temp file in the same
// directory and are renamed into place, so a crash never leaves a file that
// holds one new and one old value.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a file-backed store at path. The file is created lazily on
// the first Set.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the credential file path.
func (f *File) Path() string {
	return f.path
}

// Get reads the pair from disk. A missing file yields the zero Pair.
func (f *File) Get(_ context.Context) (Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Pair{}, nil
	}

	if err != nil {
		return Pair{}, fmt.Errorf("credstore: reading %s: %w", f.path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return Pair{}, fmt.Errorf("credstore: decoding %s: %w", f.path, err)
	}

	if ff.Token == nil {
		return Pair{}, fmt.Errorf("credstore: %s missing token field (re-login required)", f.path)
	}

	return pairFromValues(ff.Token.AccessToken, ff.Token.RefreshToken)
}

// Set writes the pair atomically with 0600 permissions. Never logs values.
func (f *File) Set(_ context.Context, p Pair) error {
	if err := validate(p); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fileFormat{Token: p.Token()}, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: encoding: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return writeAtomic(f.path, data)
}

// Clear removes the credential file. Clearing an empty store is not an error.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credstore: removing %s: %w", f.path, err)
	}

	return nil
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error {
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credstore: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("credstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: writing: %w", err)
	}

	// Flush before rename so a power loss cannot leave a partial file at path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credstore: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credstore: renaming: %w", err)
	}

	success = true

	return nil
}
