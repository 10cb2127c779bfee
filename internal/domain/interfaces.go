package domain

import "context"

// SourceAdapter queries one external media source for its current state.
// Implementations wrap whatever transport the source speaks (automation
// scripting, a cache file, a helper process, D-Bus).
type SourceAdapter interface {
	// Name returns the stable source identifier used in configuration
	// and in Snapshot.Source.
	Name() string

	// Fetch queries the source and returns its normalized snapshot.
	// A (nil, nil) return means "no result": the source is idle, not
	// running, or unreachable, and the scheduler should fall through to
	// the next priority entry. Errors are logged by the caller and then
	// treated exactly like "no result"; they never abort a poll cycle.
	//
	// Fetch may block on subprocess execution or file I/O and must be
	// invoked off the goroutine that owns the authoritative snapshot.
	Fetch(ctx context.Context) (*Snapshot, error)

	// ProbePermissions performs a throwaway query so the OS shows any
	// automation permission prompt at startup instead of mid-session.
	// Best effort; failures are swallowed.
	ProbePermissions(ctx context.Context)
}

// ArtworkQuerier is implemented by adapters whose status reply cannot
// cheaply include artwork bytes and that need a second query for them.
type ArtworkQuerier interface {
	// QueryArtwork returns raw (or base64-encoded) image bytes for the
	// currently playing track.
	QueryArtwork(ctx context.Context) ([]byte, error)
}

// CommandSender relays playback commands to an external player. The
// core never verifies that a command took effect; it re-polls shortly
// afterwards and reconciles with whatever reality reports.
type CommandSender interface {
	Send(ctx context.Context, cmd Command)
}
