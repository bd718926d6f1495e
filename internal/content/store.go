package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/folio-dev/folio/internal/logger"
)

// Store owns the portfolio document on disk. Reads are cheap and concurrent;
// Replace backs up the previous document before overwriting it.
type Store struct {
	mu        sync.RWMutex
	path      string
	backupDir string
}

func NewStore(path, backupDir string) (*Store, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", backupDir, err)
	}
	return &Store{path: filepath.Clean(path), backupDir: filepath.Clean(backupDir)}, nil
}

// Load reads and parses the document. A missing file yields an empty
// document rather than an error.
func (s *Store) Load() (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Mapping(nil), nil
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	// Tolerate a UTF-8 BOM left behind by editors.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc Node
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// Replace swaps the document for a new one, keeping a timestamped backup of
// the previous version.
func (s *Store) Replace(doc *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, err := os.ReadFile(s.path); err == nil {
		stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
		backupPath := filepath.Join(s.backupDir, fmt.Sprintf("data.backup.%s.json", stamp))
		if err := os.WriteFile(backupPath, prev, 0644); err != nil {
			return fmt.Errorf("failed to back up document: %w", err)
		}
		logger.Log.Info("document backed up", "path", backupPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read current document: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
