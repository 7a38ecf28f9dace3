package settings

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// ErrInvalid reports a settings value outside its allowed range.
var ErrInvalid = errors.New("invalid workflow settings")

// fromEnv lists the environment variables behind ports.Settings.
type fromEnv struct {
	ProcessingEnabled  bool   `env:"PROCUREMENT_PROCESSING_ENABLED" envDefault:"true"`
	IntervalSeconds    int    `env:"PROCUREMENT_INTERVAL_SECONDS" envDefault:"5"`
	MaxRetries         int    `env:"PROCUREMENT_MAX_RETRIES" envDefault:"3"`
	MaxConcurrency     int    `env:"PROCUREMENT_MAX_CONCURRENCY" envDefault:"4"`
	CompanyID          string `env:"COMPANY_ID" envDefault:"sumsang"`
	CompanyBankAccount string `env:"COMPANY_BANK_ACCOUNT" envDefault:"sumsang-main"`
}

// Patch carries a partial update. Nil fields keep their current value.
type Patch struct {
	ProcessingEnabled *bool
	IntervalSeconds   *int
	MaxRetries        *int
	MaxConcurrency    *int
}

// Store holds the current settings snapshot. Reads never block.
type Store struct {
	current atomic.Pointer[ports.Settings]
	// writes serializes read-modify-write updates.
	writes  sync.Mutex
	environ func() map[string]string
}

// Load parses the process environment into a new Store.
func Load() (*Store, error) {
	return load(nil)
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Store, error) {
	return load(func() map[string]string { return vars })
}

func load(environ func() map[string]string) (*Store, error) {
	s := &Store{environ: environ}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Current() ports.Settings {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return ports.Settings{}
}

// Reload re-reads the environment. The previous snapshot stays active when parsing fails.
func (s *Store) Reload() error {
	var opts env.Options
	if s.environ != nil {
		opts.Environment = s.environ()
	}
	parsed, err := env.ParseAsWithOptions[fromEnv](opts)
	if err != nil {
		return fmt.Errorf("parse workflow settings: %w", err)
	}
	next := ports.Settings(parsed)
	if err := validate(next); err != nil {
		return err
	}
	s.writes.Lock()
	defer s.writes.Unlock()
	s.current.Store(&next)
	return nil
}

// Update applies p atomically and returns the resulting snapshot.
func (s *Store) Update(p Patch) (ports.Settings, error) {
	s.writes.Lock()
	defer s.writes.Unlock()
	next := s.Current()
	if p.ProcessingEnabled != nil {
		next.ProcessingEnabled = *p.ProcessingEnabled
	}
	if p.IntervalSeconds != nil {
		next.IntervalSeconds = *p.IntervalSeconds
	}
	if p.MaxRetries != nil {
		next.MaxRetries = *p.MaxRetries
	}
	if p.MaxConcurrency != nil {
		next.MaxConcurrency = *p.MaxConcurrency
	}
	if err := validate(next); err != nil {
		return s.Current(), err
	}
	s.current.Store(&next)
	return next, nil
}

func validate(s ports.Settings) error {
	switch {
	case s.IntervalSeconds <= 0:
		return fmt.Errorf("%w: interval must be at least one second", ErrInvalid)
	case s.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalid)
	case s.MaxConcurrency <= 0:
		return fmt.Errorf("%w: max concurrency must be positive", ErrInvalid)
	}
	return nil
}

var _ ports.SettingsProvider = (*Store)(nil)
