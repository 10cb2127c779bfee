package normalize

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/playhead-dev/playhead/internal/domain"
)

func TestDelimited(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		source   string
		noResult bool
		wantErr  bool
		check    func(*testing.T, *domain.Snapshot)
	}{
		{
			name:   "Playing track with comma decimals",
			line:   "true|Song|Artist|Album|12,5|200,0|http://x/art.jpg",
			source: "spotify",
			check: func(t *testing.T, s *domain.Snapshot) {
				if !s.IsPlaying {
					t.Error("expected IsPlaying true")
				}
				if s.Title != "Song" || s.Artist != "Artist" || s.Album != "Album" {
					t.Errorf("unexpected metadata: %+v", s)
				}
				if s.CurrentTime != 12.5 {
					t.Errorf("CurrentTime: want 12.5, got %v", s.CurrentTime)
				}
				if s.TotalTime != 200.0 {
					t.Errorf("TotalTime: want 200.0, got %v", s.TotalTime)
				}
				if s.ArtworkHint != "http://x/art.jpg" {
					t.Errorf("ArtworkHint: got %q", s.ArtworkHint)
				}
				if s.Source != "spotify" {
					t.Errorf("Source: got %q", s.Source)
				}
			},
		},
		{
			name:   "Paused track is still a result",
			line:   "false|Song|Artist|Album|30|180|",
			source: "music",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.IsPlaying {
					t.Error("expected IsPlaying false")
				}
				if s.Title != "Song" {
					t.Errorf("Title: got %q", s.Title)
				}
			},
		},
		{
			name:     "Idle sentinel Not Playing",
			line:     "false|Not Playing|||0|1|",
			source:   "music",
			noResult: true,
		},
		{
			name:     "Idle sentinel app not running",
			line:     "false|Spotify not running|||0|1|",
			source:   "spotify",
			noResult: true,
		},
		{
			name:    "Six fields is a parse failure",
			line:    "true|Song|Artist|Album|10|200",
			source:  "music",
			wantErr: true,
		},
		{
			name:    "Eight fields is a parse failure",
			line:    "true|Song|Artist|Album|10|200|hint|extra",
			source:  "music",
			wantErr: true,
		},
		{
			name:   "Unparsable numerics get safe defaults",
			line:   "true|Song|Artist|Album|abc|xyz|",
			source: "music",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.CurrentTime != 0 {
					t.Errorf("CurrentTime default: want 0, got %v", s.CurrentTime)
				}
				if s.TotalTime != 1 {
					t.Errorf("TotalTime default: want 1, got %v", s.TotalTime)
				}
			},
		},
		{
			name:   "Embedded artwork hint passes through",
			line:   "true|Song|Artist|Album|1|2|embedded",
			source: "music",
			check: func(t *testing.T, s *domain.Snapshot) {
				if s.ArtworkHint != domain.ArtworkHintEmbedded {
					t.Errorf("ArtworkHint: got %q", s.ArtworkHint)
				}
			},
		},
		{
			name:     "Empty title yields no result",
			line:     "false||||0|1|",
			source:   "music",
			noResult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Delimited(tt.line, tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrFieldCount) {
					t.Errorf("expected ErrFieldCount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.noResult {
				if snap != nil {
					t.Fatalf("expected no result, got %+v", snap)
				}
				return
			}
			if snap == nil {
				t.Fatal("expected a snapshot, got nil")
			}
			tt.check(t, snap)
		})
	}
}

func TestUniversal_PositionEstimation(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		playing bool
		want    float64
	}{
		{name: "Playing adds wall-clock drift", playing: true, want: 13},
		{name: "Paused uses reported elapsed exactly", playing: false, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := fmt.Sprintf(
				`{"title":"Song","artist":"Artist","album":"Album","playing":%t,"duration":240,"elapsedTime":10,"timestamp":%d}`,
				tt.playing, now.Unix()-3)

			snap, err := Universal([]byte(reply), "mediaremote", now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap == nil {
				t.Fatal("expected a snapshot")
			}
			if math.Abs(snap.CurrentTime-tt.want) > 1e-9 {
				t.Errorf("CurrentTime: want %v, got %v", tt.want, snap.CurrentTime)
			}
			if snap.TotalTime != 240 {
				t.Errorf("TotalTime: want 240, got %v", snap.TotalTime)
			}
		})
	}
}

func TestUniversal_EdgeCases(t *testing.T) {
	now := time.Unix(1700000000, 0)

	t.Run("Malformed JSON is an error", func(t *testing.T) {
		if _, err := Universal([]byte("{not json"), "mediaremote", now); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})

	t.Run("Missing title is no result", func(t *testing.T) {
		snap, err := Universal([]byte(`{"playing":true,"duration":100}`), "mediaremote", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			t.Errorf("expected no result, got %+v", snap)
		}
	})

	t.Run("Zero duration becomes one", func(t *testing.T) {
		snap, err := Universal([]byte(`{"title":"Song","playing":false}`), "mediaremote", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.TotalTime != 1 {
			t.Errorf("TotalTime: want 1, got %v", snap.TotalTime)
		}
	})

	t.Run("Inline artwork is decoded eagerly", func(t *testing.T) {
		art := base64.StdEncoding.EncodeToString(testPNG(t, 4, 4))
		reply := fmt.Sprintf(`{"title":"Song","playing":true,"duration":100,"artworkData":%q}`, art)

		snap, err := Universal([]byte(reply), "mediaremote", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.Artwork == nil {
			t.Error("expected decoded artwork")
		}
	})

	t.Run("Corrupt artwork keeps metadata", func(t *testing.T) {
		reply := `{"title":"Song","playing":true,"duration":100,"artworkData":"bm90LWFuLWltYWdl"}`

		snap, err := Universal([]byte(reply), "mediaremote", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap == nil || snap.Title != "Song" {
			t.Fatal("expected metadata to survive artwork decode failure")
		}
		if snap.Artwork != nil {
			t.Error("expected nil artwork after decode failure")
		}
	})
}

func TestDecodeImage(t *testing.T) {
	raw := testPNG(t, 3, 3)

	t.Run("Raw bytes", func(t *testing.T) {
		if _, err := DecodeImage(raw); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Base64 wrapped", func(t *testing.T) {
		encoded := []byte(base64.StdEncoding.EncodeToString(raw))
		if _, err := DecodeImage(encoded); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := DecodeImage([]byte("definitely-not-an-image")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := DecodeImage(nil); err == nil {
			t.Error("expected error")
		}
	})
}

// testPNG encodes a small solid image for decode tests.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 60, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
