package config

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/observable"
)

// Store is the live settings collaborator. It keeps the file configuration
// and the effective one (file plus environment overrides) apart, so that
// environment overrides are never written back to disk.
type Store struct {
	path string
	env  func(*Config) (*Config, error)

	mu   sync.Mutex
	file *Config
	live *observable.Value[*Config]
}

// OpenStore loads path and applies environment overrides.
func OpenStore(path string) (*Store, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return newStore(path, cfg, (*Config).WithEnv)
}

// NewStore wraps cfg without reading the environment. An empty path keeps
// updates in memory.
func NewStore(path string, cfg *Config) *Store {
	s, _ := newStore(path, cfg, func(c *Config) (*Config, error) { return c.Clone(), nil })
	return s
}

func newStore(path string, cfg *Config, env func(*Config) (*Config, error)) (*Store, error) {
	effective, err := env(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		path: path,
		env:  env,
		file: cfg.Clone(),
		live: observable.New(effective),
	}, nil
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Load returns the effective configuration. Callers must not modify it.
func (s *Store) Load() *Config {
	return s.live.Load()
}

// Settings returns the effective settings.
func (s *Store) Settings() Settings {
	return s.live.Load().Settings
}

// SaveDir returns the current save directory.
func (s *Store) SaveDir() string {
	return s.live.Load().Settings.SaveDir
}

// Favorites returns a copy of the favorite package names.
func (s *Store) Favorites() []string {
	return slices.Clone(s.live.Load().Favorites)
}

// Update applies fn to a copy of the file configuration, validates and
// persists the result, then publishes the new effective configuration.
// Nothing changes when fn, validation or the write fails.
func (s *Store) Update(fn func(*Config) error) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.file.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errutils.ErrConfigValidation, err)
	}
	effective, err := s.env(next)
	if err != nil {
		return nil, err
	}
	if s.path != "" {
		if err := next.SaveConfig(s.path); err != nil {
			return nil, errutils.Wrapf(err, "failed to save config to %s", s.path)
		}
	}
	s.file = next
	s.live.Store(effective)
	logger.Debug("Configuration updated", logger.Fields{"path": s.path})
	return effective, nil
}

// ToggleFavorite flips the favorite flag of pkg and reports the new state.
func (s *Store) ToggleFavorite(pkg string) (bool, error) {
	var favorite bool
	_, err := s.Update(func(c *Config) error {
		if i := slices.Index(c.Favorites, pkg); i >= 0 {
			c.Favorites = slices.Delete(c.Favorites, i, i+1)
			favorite = false
			return nil
		}
		c.Favorites = append(c.Favorites, pkg)
		slices.Sort(c.Favorites)
		favorite = true
		return nil
	})
	return favorite, err
}

// Subscribe streams the effective configuration until ctx is done, starting
// with the current one.
func (s *Store) Subscribe(ctx context.Context) <-chan *Config {
	return s.live.Subscribe(ctx)
}
