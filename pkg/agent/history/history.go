// Package history persists the step loop as append-only JSONL, one
// types.AgentStep per line. Appends are durable before the next step starts,
// so a crashed task can be inspected or resumed from its last completed
// step.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pagepilot/pagepilot/pkg/types"
)

// Store is an append-only step log for one task.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open creates or appends to the step log at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	return &Store{path: path, file: file}, nil
}

// Append writes one step and syncs it to disk.
func (s *Store) Append(step types.AgentStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("history store is closed")
	}

	line, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append step: %w", err)
	}
	return s.file.Sync()
}

// Path returns the log file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Load reads all steps from a log file. Trailing partial lines (from a
// crash mid-append) are skipped, not fatal.
func Load(path string) ([]types.AgentStep, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var steps []types.AgentStep
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var step types.AgentStep
		if err := json.Unmarshal(scanner.Bytes(), &step); err != nil {
			continue
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return steps, nil
}
