package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
)

// FileStore persists the session collection as one JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored collection. A missing file is an empty collection;
// malformed content is logged and treated as empty.
func (s *FileStore) Load() []chat.Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[store] failed to read %s: %v", s.path, err)
		}
		return []chat.Session{}
	}

	var sessions []chat.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("[store] malformed session data in %s, starting empty: %v", s.path, err)
		return []chat.Session{}
	}
	if sessions == nil {
		return []chat.Session{}
	}
	return sessions
}

// Save overwrites the stored collection. The write goes to a temporary file
// in the same directory followed by a rename, so readers never observe a
// partial document.
func (s *FileStore) Save(sessions []chat.Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "sessions-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
