package storage

import (
	"os"
	"path/filepath"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// JSONStore provides thread-safe file persistence for snapshots.
// Documents are written as relaxed MongoDB Extended JSON so the same
// bson tags govern both the file and the database layout.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewJSONStore creates a new store at dataDir/filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	return &JSONStore{
		filePath: filepath.Join(dataDir, filename),
	}, nil
}

// Load reads the snapshot into data. A missing file leaves data untouched.
func (s *JSONStore) Load(data interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	return bson.UnmarshalExtJSON(raw, false, data)
}

// Save writes data to the file.
func (s *JSONStore) Save(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := bson.MarshalExtJSONIndent(data, false, false, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first, then rename (atomic operation)
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0644); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.filePath)
}

// Path is the snapshot file location.
func (s *JSONStore) Path() string {
	return s.filePath
}
