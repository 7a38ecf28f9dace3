package ports

import "time"

// Settings is a snapshot of the hot-reloadable workflow configuration.
type Settings struct {
	ProcessingEnabled  bool
	IntervalSeconds    int
	MaxRetries         int
	MaxConcurrency     int
	CompanyID          string
	CompanyBankAccount string
}

// Interval converts IntervalSeconds into a duration, falling back to one second.
func (s Settings) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return time.Second
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// SettingsProvider returns the current settings snapshot. Implementations must be safe for concurrent use.
type SettingsProvider interface {
	Current() Settings
}

// StaticSettings serves a fixed snapshot.
type StaticSettings Settings

func (s StaticSettings) Current() Settings { return Settings(s) }
