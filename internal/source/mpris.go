//go:build linux

package source

import (
	"context"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	mprisPlayerIfc  = "org.mpris.MediaPlayer2.Player"
)

// MPRISAdapter queries the first MPRIS-capable player on the D-Bus
// session bus. It is an optional priority-list entry on Linux, where
// scripted application adapters do not exist.
type MPRISAdapter struct {
	logger *zap.Logger

	mu      sync.Mutex
	conn    DBusClient
	connect func() (DBusClient, error)
}

// NewMPRISAdapter returns the adapter. The bus connection is opened
// lazily on the first fetch so a missing session bus only costs a log
// line per cycle, not a startup failure.
func NewMPRISAdapter(logger *zap.Logger) *MPRISAdapter {
	return &MPRISAdapter{
		logger: logger,
		connect: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Name returns the source identifier.
func (a *MPRISAdapter) Name() string { return "mpris" }

// Fetch lists bus names, picks the first MPRIS player, and reads its
// playback status, metadata, and position. Any bus failure is "no
// result"; the connection is dropped so the next cycle reconnects.
func (a *MPRISAdapter) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	conn, err := a.client()
	if err != nil {
		a.logger.Debug("session bus unavailable, treating as no result", zap.Error(err))
		return nil, nil
	}

	names, err := conn.ListNames()
	if err != nil {
		a.logger.Debug("failed to list bus names, treating as no result", zap.Error(err))
		a.dropClient()
		return nil, nil
	}

	var player string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			player = name
			break
		}
	}
	if player == "" {
		return nil, nil
	}

	statusVar, err := conn.GetProperty(player, mprisObjectPath, mprisPlayerIfc+".PlaybackStatus")
	if err != nil {
		a.dropClient()
		return nil, nil
	}
	status, _ := statusVar.Value().(string)
	if status != "Playing" && status != "Paused" {
		return nil, nil
	}

	metaVar, err := conn.GetProperty(player, mprisObjectPath, mprisPlayerIfc+".Metadata")
	if err != nil {
		a.dropClient()
		return nil, nil
	}
	meta, ok := metaVar.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, nil
	}

	snap := &domain.Snapshot{
		IsPlaying: status == "Playing",
		Source:    a.Name(),
		TotalTime: 1,
	}

	if v, ok := meta["xesam:title"]; ok {
		snap.Title, _ = v.Value().(string)
	}
	if snap.Title == "" {
		return nil, nil
	}

	if v, ok := meta["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			if len(artists) > 0 {
				snap.Artist = artists[0]
			}
		case string:
			snap.Artist = artists
		}
	}
	if v, ok := meta["xesam:album"]; ok {
		snap.Album, _ = v.Value().(string)
	}
	if v, ok := meta["mpris:length"]; ok {
		if length, ok := v.Value().(int64); ok && length > 0 {
			snap.TotalTime = float64(length) / 1e6
		}
	}
	if v, ok := meta["mpris:artUrl"]; ok {
		if artURL, ok := v.Value().(string); ok {
			// Local covers arrive as file:// URLs; strip the scheme so
			// the artwork cache takes its file-read path.
			snap.ArtworkHint = strings.TrimPrefix(artURL, "file://")
		}
	}

	if posVar, err := conn.GetProperty(player, mprisObjectPath, mprisPlayerIfc+".Position"); err == nil {
		if pos, ok := posVar.Value().(int64); ok && pos > 0 {
			snap.CurrentTime = float64(pos) / 1e6
		}
	}

	return snap, nil
}

// ProbePermissions opens the bus connection early. D-Bus needs no user
// prompt, so this only warms up the connection.
func (a *MPRISAdapter) ProbePermissions(ctx context.Context) {
	if _, err := a.client(); err != nil {
		a.logger.Debug("permission probe failed", zap.Error(err))
	}
}

func (a *MPRISAdapter) client() (DBusClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := a.connect()
	if err != nil {
		return nil, err
	}
	a.conn = conn
	return conn, nil
}

func (a *MPRISAdapter) dropClient() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Debug("failed to close bus connection", zap.Error(err))
		}
		a.conn = nil
	}
}
