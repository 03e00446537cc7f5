package config

import (
	"os"
	"time"

	"github.com/folio-sh/folio/internal/lockfile"
)

// Config holds folio configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Lock          LockCfg   `mapstructure:"lock" yaml:"lock"`
	Output        OutputCfg `mapstructure:"output" yaml:"output"`
	Editor        string    `mapstructure:"editor" yaml:"editor"`
	DefaultSchema string    `mapstructure:"default_schema" yaml:"default_schema"`
}

// LockCfg tunes sidecar lock acquisition. All values are milliseconds.
type LockCfg struct {
	TimeoutMS int `mapstructure:"timeout_ms" yaml:"timeout_ms"` // Give up after this long
	StaleMS   int `mapstructure:"stale_ms" yaml:"stale_ms"`     // Markers older than this are reclaimed
	PollMS    int `mapstructure:"poll_ms" yaml:"poll_ms"`       // Delay between acquisition attempts
}

// Locker converts the configured timings into a lockfile.Locker.
// Zero values fall through to the lockfile defaults.
func (l LockCfg) Locker() lockfile.Locker {
	return lockfile.Locker{
		Timeout: time.Duration(l.TimeoutMS) * time.Millisecond,
		Stale:   time.Duration(l.StaleMS) * time.Millisecond,
		Poll:    time.Duration(l.PollMS) * time.Millisecond,
	}
}

// OutputCfg controls how commands print records.
type OutputCfg struct {
	Format string `mapstructure:"format" yaml:"format"` // "yaml" or "json"
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Lock: LockCfg{
			TimeoutMS: 5000,
			StaleMS:   30000,
			PollMS:    50,
		},
		Output:        OutputCfg{Format: "yaml"},
		DefaultSchema: "default",
	}
}

// EditorCommand returns the editor used for interactive section editing.
// Falls back to $EDITOR, then vi.
func (c *Config) EditorCommand() string {
	if c.Editor != "" {
		return ResolveEnvVars(c.Editor)
	}
	if ed := os.Getenv("EDITOR"); ed != "" {
		return ed
	}
	return "vi"
}
