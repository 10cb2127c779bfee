// Package config loads daemon configuration and exposes it as immutable
// snapshots. The scheduler re-reads a snapshot at the top of every poll
// cycle, so edits to the config file take effect within one cycle; a
// change signal additionally wakes the scheduler early.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Mode selects how sources are polled.
type Mode string

const (
	// ModePriorityList tries the configured sources in order and stops
	// at the first one reporting an active state.
	ModePriorityList Mode = "prioritylist"
	// ModeUniversal polls only the universal system-media adapter.
	ModeUniversal Mode = "universal"
)

// Log holds logging settings.
type Log struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Snapshot is one immutable view of the configuration. Callers must not
// retain it across poll cycles.
type Snapshot struct {
	Mode     Mode
	Priority []string
	Enabled  map[string]bool

	ActiveInterval        time.Duration
	IdleInterval          time.Duration
	UniversalIdleInterval time.Duration
	CommandRepollDelay    time.Duration

	// Universal helper install location.
	HelperInterpreter string
	HelperScript      string

	// File-backed source contract paths.
	StatusFilePath  string
	ArtworkFilePath string

	Log Log
}

// EnabledSource reports whether the named source may be polled.
func (s Snapshot) EnabledSource(name string) bool {
	return s.Enabled[name]
}

// Config is the live configuration handle with thread-safe snapshot
// access and a change signal fed by the file watcher.
type Config struct {
	mu      sync.RWMutex
	snap    Snapshot
	changes chan struct{}
}

// Load reads the config file (XDG path, PLAYHEAD_ env overrides),
// installs defaults for everything missing, and starts the live-reload
// watcher. A missing config file is not an error; an unreadable one
// falls back to built-in defaults.
func Load() (*Config, error) {
	viper.SetDefault("sources.mode", string(ModePriorityList))
	viper.SetDefault("sources.priority", []string{"music", "spotify", "cider", "mpris"})
	viper.SetDefault("sources.enabled", []string{"music", "spotify", "cider", "mpris"})
	viper.SetDefault("timing.active_interval_ms", 1000)
	viper.SetDefault("timing.idle_interval_ms", 2000)
	viper.SetDefault("timing.universal_idle_interval_ms", 5000)
	viper.SetDefault("timing.command_repoll_ms", 400)
	viper.SetDefault("helper.interpreter", "/usr/bin/python3")
	viper.SetDefault("helper.script", "/usr/local/libexec/playhead/mediaremote-helper.py")
	viper.SetDefault("cider.status_file", defaultCiderPath("currenttrack"))
	viper.SetDefault("cider.artwork_file", defaultCiderPath("artwork"))
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 14)
	viper.SetDefault("log.compress", true)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		viper.AddConfigPath(filepath.Join(configHome, "playhead"))
	}

	viper.SetEnvPrefix("PLAYHEAD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Unreadable config is non-fatal: run on defaults.
			return newConfig(fromViper()), nil
		}
	}

	c := newConfig(fromViper())

	viper.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		c.snap = fromViper()
		c.mu.Unlock()
		select {
		case c.changes <- struct{}{}:
		default:
		}
	})
	viper.WatchConfig()

	return c, nil
}

func newConfig(snap Snapshot) *Config {
	return &Config{snap: snap, changes: make(chan struct{}, 1)}
}

// NewStatic returns a handle over a fixed snapshot, with no file backing
// and no live reload. Used for embedding and in tests.
func NewStatic(snap Snapshot) *Config {
	return newConfig(snap)
}

// Snapshot returns a copy of the current configuration.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Changes returns a channel that pulses after each live reload.
func (c *Config) Changes() <-chan struct{} {
	return c.changes
}

func fromViper() Snapshot {
	enabled := make(map[string]bool)
	for _, name := range viper.GetStringSlice("sources.enabled") {
		enabled[strings.ToLower(strings.TrimSpace(name))] = true
	}

	mode := Mode(strings.ToLower(viper.GetString("sources.mode")))
	if mode != ModeUniversal {
		mode = ModePriorityList
	}

	return Snapshot{
		Mode:     mode,
		Priority: viper.GetStringSlice("sources.priority"),
		Enabled:  enabled,

		ActiveInterval:        time.Duration(viper.GetInt("timing.active_interval_ms")) * time.Millisecond,
		IdleInterval:          time.Duration(viper.GetInt("timing.idle_interval_ms")) * time.Millisecond,
		UniversalIdleInterval: time.Duration(viper.GetInt("timing.universal_idle_interval_ms")) * time.Millisecond,
		CommandRepollDelay:    time.Duration(viper.GetInt("timing.command_repoll_ms")) * time.Millisecond,

		HelperInterpreter: viper.GetString("helper.interpreter"),
		HelperScript:      viper.GetString("helper.script"),

		StatusFilePath:  viper.GetString("cider.status_file"),
		ArtworkFilePath: viper.GetString("cider.artwork_file"),

		Log: Log{
			Level:      viper.GetString("log.level"),
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAgeDays: viper.GetInt("log.max_age_days"),
			Compress:   viper.GetBool("log.compress"),
		},
	}
}

func defaultCiderPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "cider", name)
}
