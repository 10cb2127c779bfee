package domain

import (
	"fmt"
	"image"
)

// IdleTitle is the sentinel title published when no source reports an
// active track.
const IdleTitle = "Nothing Playing"

// ArtworkHintEmbedded marks artwork that cannot be resolved from the
// status reply itself and requires a second, source-specific query.
const ArtworkHintEmbedded = "embedded"

// Color is an 8-bit RGB presentation color derived from artwork.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Hex returns the color as a "#rrggbb" string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Snapshot is the canonical description of "what is playing right now".
// One authoritative Snapshot is owned by the scheduler; everything else
// operates on copies.
type Snapshot struct {
	IsPlaying bool
	Title     string
	Artist    string
	Album     string

	// CurrentTime and TotalTime are seconds. TotalTime 0 means unknown;
	// normalizers substitute 1.0 so consumers never divide by zero.
	CurrentTime float64
	TotalTime   float64

	// Artwork is the decoded cover image, nil when absent or not yet
	// fetched. ArtworkHint is the opaque retrieval hint carried by the
	// source reply (URL, file path, ArtworkHintEmbedded, or empty).
	Artwork     image.Image
	ArtworkHint string

	DominantColor *Color
	Palette       []Color

	// Source identifies the adapter that produced this snapshot. Empty
	// when idle.
	Source string
}

// Idle returns the sentinel snapshot published when nothing is playing.
func Idle() Snapshot {
	return Snapshot{Title: IdleTitle}
}

// IsIdle reports whether the snapshot is the idle sentinel.
func (s Snapshot) IsIdle() bool {
	return s.Title == IdleTitle
}

// SameTrack reports change-detection equality. Position and duration
// drift on every poll and deliberately do not count as a change.
func (s Snapshot) SameTrack(o Snapshot) bool {
	return s.Title == o.Title && s.Artist == o.Artist && s.IsPlaying == o.IsPlaying
}

// ArtworkKey derives the cache key for this snapshot's artwork. The
// source is part of the key so two sources reporting the same title
// never share an entry.
func (s Snapshot) ArtworkKey() string {
	if s.IsIdle() || s.Title == "" {
		return ""
	}
	return s.Title + "\x00" + s.Source
}

// ArtworkActionKind enumerates what the reconciler wants done about
// artwork after a merge.
type ArtworkActionKind int

const (
	// ArtworkNone leaves the current artwork untouched.
	ArtworkNone ArtworkActionKind = iota
	// ArtworkFetch requests a (possibly cached) fetch for the hint.
	ArtworkFetch
	// ArtworkInvalidate clears the displayed artwork immediately and
	// then fetches; used on source switches so stale art is never
	// attributed to the wrong source.
	ArtworkInvalidate
)

// ArtworkAction is the reconciler's artwork decision for one merge.
type ArtworkAction struct {
	Kind ArtworkActionKind
	Hint string
}

// CommandAction enumerates playback commands the daemon can relay.
type CommandAction int

const (
	CommandPlayPause CommandAction = iota
	CommandNext
	CommandPrevious
	CommandSeek
)

// Command is a best-effort playback instruction for an external player.
type Command struct {
	Action CommandAction
	// SeekTo is the absolute position in seconds, used by CommandSeek.
	SeekTo float64
	// Target names the source the command is aimed at. Empty means the
	// source currently shown in the authoritative snapshot.
	Target string
}
