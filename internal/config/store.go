package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	enginerrors "github.com/quangtran88/signalbot/internal/errors"
)

// Store owns all strategy configurations. Callers reference configs by
// name; the pointers handed out stay valid until the config is deleted.
type Store struct {
	mu      sync.RWMutex
	configs map[string]*StrategyConfig
	path    string
}

// NewStore creates a store, loading persisted configs from path when the
// file exists. An empty path keeps the store memory-only (tests).
func NewStore(path string) (*Store, error) {
	s := &Store{
		configs: make(map[string]*StrategyConfig),
		path:    path,
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Create validates and adds a new strategy config.
func (s *Store) Create(cfg *StrategyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.Name]; exists {
		return enginerrors.New(enginerrors.CategoryConfig, "config", "create",
			fmt.Sprintf("strategy %q already exists", cfg.Name))
	}
	s.configs[cfg.Name] = cfg
	return s.saveLocked()
}

// Update validates and replaces an existing strategy config.
func (s *Store) Update(cfg *StrategyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.Name]; !exists {
		return fmt.Errorf("strategy %q: %w", cfg.Name, enginerrors.ErrNotFound)
	}
	s.configs[cfg.Name] = cfg
	return s.saveLocked()
}

// Delete removes a strategy config by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[name]; !exists {
		return fmt.Errorf("strategy %q: %w", name, enginerrors.ErrNotFound)
	}
	delete(s.configs, name)
	return s.saveLocked()
}

// Get returns the config for a strategy name.
func (s *Store) Get(name string) (*StrategyConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// List returns all configs sorted by name.
func (s *Store) List() []*StrategyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StrategyConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Active returns all active configs sorted by name.
func (s *Store) Active() []*StrategyConfig {
	all := s.List()
	out := all[:0:0]
	for _, cfg := range all {
		if cfg.Active {
			out = append(out, cfg)
		}
	}
	return out
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read strategy store: %w", err)
	}
	var configs []*StrategyConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return fmt.Errorf("failed to parse strategy store: %w", err)
	}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("persisted strategy %q is invalid: %w", cfg.Name, err)
		}
		s.configs[cfg.Name] = cfg
	}
	return nil
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	configs := make([]*StrategyConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal strategy store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write strategy store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
