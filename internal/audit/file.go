package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/taskhive/taskhive/internal/db/models"
)

// FileMirror appends audit entries as JSON lines to a local file. It is a
// secondary destination: the database row is the source of truth and a file
// write failure never blocks or fails the database write.
type FileMirror struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileMirror opens (or creates) the mirror file for appending.
func NewFileMirror(path string) (*FileMirror, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit mirror file: %w", err)
	}
	return &FileMirror{file: file}, nil
}

// Write appends one entry as a JSON line.
func (m *FileMirror) Write(log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if _, err := m.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// Close closes the underlying file.
func (m *FileMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
