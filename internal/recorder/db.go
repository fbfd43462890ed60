package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDBName is the store file used when none is configured.
const DefaultDBName = "event_db.json"

// Load reads the event database at path. An absent or empty file
// initializes an empty store; a present but unparsable file is a
// CORRUPT_DATABASE error.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("database absent; initializing empty store", "path", path)
		return &Data{Scenes: []*Scene{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		slog.Debug("database empty; initializing empty store", "path", path)
		return &Data{Scenes: []*Scene{}}, nil
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &Error{
			Code:    ErrCodeCorruptDatabase,
			Message: "could not reconstruct scenes",
			Path:    path,
			Err:     err,
		}
	}
	if data.Scenes == nil {
		data.Scenes = []*Scene{}
	}
	for i, scene := range data.Scenes {
		if scene == nil {
			return nil, &Error{
				Code:    ErrCodeCorruptDatabase,
				Message: fmt.Sprintf("scene %d is null", i),
				Path:    path,
			}
		}
	}
	return &data, nil
}

// Commit writes the store back to path as indented JSON. The write
// goes through a temp file and rename, so a later reader never
// observes a partial document.
func Commit(path string, data *Data) error {
	if data.Scenes == nil {
		data.Scenes = []*Scene{}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize database: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".event_db-*")
	if err != nil {
		return fmt.Errorf("commit database: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("commit database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit database: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit database: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit database: %w", err)
	}
	return nil
}

// Update runs one load-mutate-commit cycle: open, read, apply one
// change, write, close. Every interception is scoped to exactly one
// such cycle; there is no cross-call caching of the in-memory Data and
// no file locking (see the package caveat on concurrent processes).
// If fn returns an error the commit is skipped.
func Update(path string, fn func(*Data) error) error {
	data, err := Load(path)
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return Commit(path, data)
}
