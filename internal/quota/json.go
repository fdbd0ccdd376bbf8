package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// legacyKey is the pre-daily shape: {user: {"prompts_used": N}}.
const legacyKey = "prompts_used"

// JSONStore keeps usage in a JSON file shaped {user: {YYYY-MM-DD: count}}.
// The file is re-read on every call so several processes can share it.
type JSONStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewJSONStore returns a store backed by the file at path. The file is created on
// first write.
func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStore{path: path, logger: logger}
}

// Count implements Store.
func (s *JSONStore) Count(_ context.Context, user, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, changed := migrate(s.load(), day)
	if changed {
		if err := s.save(data); err != nil {
			return 0, err
		}
	}
	return data[user][day], nil
}

// Increment implements Store.
func (s *JSONStore) Increment(_ context.Context, user, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := migrate(s.load(), day)
	if data[user] == nil {
		data[user] = make(map[string]int)
	}
	data[user][day]++
	if err := s.save(data); err != nil {
		return 0, err
	}
	return data[user][day], nil
}

// Decrement implements Store.
func (s *JSONStore) Decrement(_ context.Context, user, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := migrate(s.load(), day)
	if data[user][day] <= 0 {
		return 0, nil
	}
	data[user][day]--
	if err := s.save(data); err != nil {
		return 0, err
	}
	return data[user][day], nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

// load reads the file. A missing or unreadable file is treated as empty.
func (s *JSONStore) load() map[string]map[string]int {
	data := make(map[string]map[string]int)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read usage file", zap.String("path", s.path), zap.Error(err))
		}
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("failed to parse usage file, starting empty", zap.String("path", s.path), zap.Error(err))
		return make(map[string]map[string]int)
	}
	return data
}

func (s *JSONStore) save(data map[string]map[string]int) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create usage dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write usage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write usage: %w", err)
	}
	return nil
}

// migrate moves legacy prompts_used counts to day. It reports whether anything changed.
func migrate(data map[string]map[string]int, day string) (map[string]map[string]int, bool) {
	changed := false
	for user, days := range data {
		n, ok := days[legacyKey]
		if !ok {
			continue
		}
		delete(days, legacyKey)
		days[day] += n
		data[user] = days
		changed = true
	}
	return data, changed
}
