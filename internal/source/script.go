package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/normalize"
)

// Status scripts emit the 7-field delimited record the normalizer
// expects. The running-process guard keeps osascript from launching the
// application just to ask it what it is playing.
const musicStatusScript = `
tell application "System Events"
	if not (exists process "Music") then return "false|Music not running|||0|1|"
end tell
tell application "Music"
	if player state is stopped then return "false|Not Playing|||0|1|"
	set playingFlag to "false"
	if player state is playing then set playingFlag to "true"
	set trackName to name of current track
	set trackArtist to artist of current track
	set trackAlbum to album of current track
	set pos to player position as string
	set dur to duration of current track as string
	return playingFlag & "|" & trackName & "|" & trackArtist & "|" & trackAlbum & "|" & pos & "|" & dur & "|embedded"
end tell`

// Music cannot return artwork bytes alongside the status reply, hence
// the "embedded" hint and this secondary query.
const musicArtworkScript = `
tell application "Music"
	if player state is stopped then error "no track"
	get raw data of artwork 1 of current track
end tell`

const spotifyStatusScript = `
tell application "System Events"
	if not (exists process "Spotify") then return "false|Spotify not running|||0|1|"
end tell
tell application "Spotify"
	if player state is stopped then return "false|Not Playing|||0|1|"
	set playingFlag to "false"
	if player state is playing then set playingFlag to "true"
	set trackName to name of current track
	set trackArtist to artist of current track
	set trackAlbum to album of current track
	set pos to player position as string
	set dur to ((duration of current track) / 1000) as string
	return playingFlag & "|" & trackName & "|" & trackArtist & "|" & trackAlbum & "|" & pos & "|" & dur & "|" & artwork url of current track
end tell`

const probeScript = `tell application "System Events" to return name of first process`

// ScriptAdapter queries a desktop player through an embedded osascript
// automation snippet. One instance exists per supported application.
type ScriptAdapter struct {
	logger        *zap.Logger
	runner        Runner
	name          string
	statusScript  string
	artworkScript string
}

// NewMusicAdapter returns the adapter for the Music application. Its
// replies carry the "embedded" artwork hint, resolved by QueryArtwork.
func NewMusicAdapter(logger *zap.Logger, runner Runner) *ScriptAdapter {
	return &ScriptAdapter{
		logger:        logger,
		runner:        runner,
		name:          "music",
		statusScript:  musicStatusScript,
		artworkScript: musicArtworkScript,
	}
}

// NewSpotifyAdapter returns the adapter for Spotify. Spotify exposes a
// direct artwork URL, so its replies carry an HTTP hint and no
// secondary query is needed.
func NewSpotifyAdapter(logger *zap.Logger, runner Runner) *ScriptAdapter {
	return &ScriptAdapter{
		logger:       logger,
		runner:       runner,
		name:         "spotify",
		statusScript: spotifyStatusScript,
	}
}

// Name returns the source identifier.
func (a *ScriptAdapter) Name() string { return a.name }

// Fetch runs the status script and normalizes its reply. Script
// execution failures mean the player is absent or uncooperative and are
// reported as "no result", not as errors, so the scheduler falls
// through to the next priority entry.
func (a *ScriptAdapter) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	out, err := a.runner.Run(ctx, "osascript", "-e", a.statusScript)
	if err != nil {
		a.logger.Debug("status script failed, treating as no result",
			zap.String("source", a.name),
			zap.Error(err))
		return nil, nil
	}

	line := strings.TrimSpace(string(out))
	if line == "" {
		return nil, nil
	}

	snap, err := normalize.Delimited(line, a.name)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// QueryArtwork runs the secondary artwork script and returns its raw
// output bytes. Only adapters whose replies carry the "embedded" hint
// have one.
func (a *ScriptAdapter) QueryArtwork(ctx context.Context) ([]byte, error) {
	if a.artworkScript == "" {
		return nil, nil
	}
	return a.runner.Run(ctx, "osascript", "-e", a.artworkScript)
}

// ProbePermissions runs a harmless automation query so the OS surfaces
// its permission prompt at startup. The result is discarded.
func (a *ScriptAdapter) ProbePermissions(ctx context.Context) {
	if _, err := a.runner.Run(ctx, "osascript", "-e", probeScript); err != nil {
		a.logger.Debug("permission probe failed",
			zap.String("source", a.name),
			zap.Error(err))
	}
}
