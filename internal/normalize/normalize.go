// Package normalize parses the raw replies of every source family into
// the canonical domain.Snapshot. Two wire formats exist: a 7-field
// pipe-delimited record used by the scripted and file-backed sources,
// and a JSON object used by the universal helper.
package normalize

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/playhead-dev/playhead/internal/domain"
)

// DelimitedFieldCount is the exact number of pipe-separated fields a
// scripted source reply must carry.
const DelimitedFieldCount = 7

// ErrFieldCount is returned when a delimited reply does not have exactly
// DelimitedFieldCount fields. Callers demote it to "no result".
var ErrFieldCount = fmt.Errorf("reply does not have exactly %d fields", DelimitedFieldCount)

// idleSentinel reports whether a reply title is one of the idle
// sentinels a stopped or absent player emits ("Not Playing" or
// "<app> not running").
func idleSentinel(title string) bool {
	return title == "Not Playing" || strings.HasSuffix(title, " not running")
}

// Delimited parses one 7-field record:
//
//	isPlaying|title|artist|album|position|duration|artworkHint
//
// Numeric fields accept either "." or "," as the decimal separator.
// An unparsable position defaults to 0 and an unparsable duration to 1,
// never 0, so downstream progress math cannot divide by zero. The
// artwork hint is opaque here and passed through verbatim.
//
// A reply whose playing flag is false and whose title is an idle
// sentinel yields (nil, nil): the source is alive but has nothing to
// report, and the caller should fall through to the next source.
func Delimited(line, source string) (*domain.Snapshot, error) {
	fields := strings.Split(line, "|")
	if len(fields) != DelimitedFieldCount {
		return nil, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}

	playing := strings.EqualFold(strings.TrimSpace(fields[0]), "true")
	title := strings.TrimSpace(fields[1])

	if !playing && idleSentinel(title) {
		return nil, nil
	}
	if title == "" {
		return nil, nil
	}

	snap := &domain.Snapshot{
		IsPlaying:   playing,
		Title:       title,
		Artist:      strings.TrimSpace(fields[2]),
		Album:       strings.TrimSpace(fields[3]),
		CurrentTime: seconds(fields[4], 0),
		TotalTime:   seconds(fields[5], 1),
		ArtworkHint: strings.TrimSpace(fields[6]),
		Source:      source,
	}
	return snap, nil
}

// seconds parses a decimal seconds field, accepting "," as the decimal
// separator, and substitutes def when the field is unparsable.
func seconds(field string, def float64) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(field), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// universalReply is the JSON object the universal helper prints on its
// standard output for the "get" verb.
type universalReply struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Playing     bool    `json:"playing"`
	Duration    float64 `json:"duration"`
	ElapsedTime float64 `json:"elapsedTime"`
	Timestamp   float64 `json:"timestamp"`
	ArtworkData string  `json:"artworkData,omitempty"`
}

// Universal parses the helper's JSON reply. The helper reports elapsed
// time as of a reference timestamp rather than as of now, so when
// playback is active the position is estimated as
//
//	current = elapsedTime + (now - timestamp)
//
// compensating for polling latency. When paused the reported elapsed
// time is used as-is. Artwork, if present, arrives inline as base64 and
// is decoded eagerly; this is the only family that can produce artwork
// without a second round trip. A missing or empty title yields
// (nil, nil).
func Universal(data []byte, source string, now time.Time) (*domain.Snapshot, error) {
	var reply universalReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("malformed helper reply: %w", err)
	}
	if strings.TrimSpace(reply.Title) == "" {
		return nil, nil
	}

	current := reply.ElapsedTime
	if reply.Playing && reply.Timestamp > 0 {
		elapsed := float64(now.UnixNano())/1e9 - reply.Timestamp
		if elapsed > 0 {
			current += elapsed
		}
	}
	if current < 0 {
		current = 0
	}

	total := reply.Duration
	if total <= 0 {
		total = 1
	}

	snap := &domain.Snapshot{
		IsPlaying:   reply.Playing,
		Title:       strings.TrimSpace(reply.Title),
		Artist:      strings.TrimSpace(reply.Artist),
		Album:       strings.TrimSpace(reply.Album),
		CurrentTime: current,
		TotalTime:   total,
		Source:      source,
	}

	if reply.ArtworkData != "" {
		if img, err := DecodeImage([]byte(reply.ArtworkData)); err == nil {
			snap.Artwork = img
		}
		// Decode failures leave artwork empty; the track metadata is
		// still good.
	}

	return snap, nil
}

// DecodeImage decodes image bytes that may or may not be base64
// wrapped. Scripted sources return raw bytes while the universal helper
// and MPRIS file URLs hand over base64.
func DecodeImage(data []byte) (image.Image, error) {
	raw := data
	if decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data))); err == nil {
		raw = decoded
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
