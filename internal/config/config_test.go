package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// loadFrom resets global viper state and loads from a config dir
// containing the given YAML (empty means no config file).
func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	viper.Reset()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if yaml != "" {
		appDir := filepath.Join(dir, "playhead")
		if err := os.MkdirAll(appDir, 0o755); err != nil {
			t.Fatalf("failed to create config dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestLoad_Defaults(t *testing.T) {
	snap := loadFrom(t, "").Snapshot()

	if snap.Mode != ModePriorityList {
		t.Errorf("Mode: want %q, got %q", ModePriorityList, snap.Mode)
	}
	wantPriority := []string{"music", "spotify", "cider", "mpris"}
	if len(snap.Priority) != len(wantPriority) {
		t.Fatalf("Priority: want %v, got %v", wantPriority, snap.Priority)
	}
	for i, name := range wantPriority {
		if snap.Priority[i] != name {
			t.Errorf("Priority[%d]: want %q, got %q", i, name, snap.Priority[i])
		}
	}

	if snap.ActiveInterval != time.Second {
		t.Errorf("ActiveInterval: want 1s, got %v", snap.ActiveInterval)
	}
	if snap.IdleInterval != 2*time.Second {
		t.Errorf("IdleInterval: want 2s, got %v", snap.IdleInterval)
	}
	if snap.UniversalIdleInterval != 5*time.Second {
		t.Errorf("UniversalIdleInterval: want 5s, got %v", snap.UniversalIdleInterval)
	}
	if snap.CommandRepollDelay != 400*time.Millisecond {
		t.Errorf("CommandRepollDelay: want 400ms, got %v", snap.CommandRepollDelay)
	}

	if !snap.EnabledSource("music") || !snap.EnabledSource("cider") {
		t.Error("expected default sources enabled")
	}
	if snap.EnabledSource("mediaremote") {
		t.Error("universal source must not be in the priority-list enabled set")
	}

	if snap.HelperInterpreter == "" || snap.HelperScript == "" {
		t.Error("expected helper defaults")
	}
	if snap.Log.Level != "info" {
		t.Errorf("Log.Level: want info, got %q", snap.Log.Level)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	snap := loadFrom(t, `
sources:
  mode: universal
  enabled:
    - spotify
timing:
  active_interval_ms: 250
log:
  level: debug
`).Snapshot()

	if snap.Mode != ModeUniversal {
		t.Errorf("Mode: want %q, got %q", ModeUniversal, snap.Mode)
	}
	if snap.ActiveInterval != 250*time.Millisecond {
		t.Errorf("ActiveInterval: want 250ms, got %v", snap.ActiveInterval)
	}
	if snap.EnabledSource("music") {
		t.Error("music should be disabled by the override")
	}
	if !snap.EnabledSource("spotify") {
		t.Error("spotify should be enabled")
	}
	if snap.Log.Level != "debug" {
		t.Errorf("Log.Level: want debug, got %q", snap.Log.Level)
	}
}

func TestLoad_ModeNormalization(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want Mode
	}{
		{name: "Uppercase universal", mode: "UNIVERSAL", want: ModeUniversal},
		{name: "Unknown falls back", mode: "whatever", want: ModePriorityList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := loadFrom(t, "sources:\n  mode: "+tt.mode+"\n").Snapshot()
			if snap.Mode != tt.want {
				t.Errorf("Mode: want %q, got %q", tt.want, snap.Mode)
			}
		})
	}
}

func TestEnabledSource_CaseAndSpace(t *testing.T) {
	snap := loadFrom(t, "sources:\n  enabled:\n    - ' Music '\n    - SPOTIFY\n").Snapshot()

	if !snap.EnabledSource("music") {
		t.Error("expected trimmed lowercase lookup for music")
	}
	if !snap.EnabledSource("spotify") {
		t.Error("expected trimmed lowercase lookup for spotify")
	}
}
