package source

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/source/mocks"
)

func TestScriptAdapter_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		runErr   error
		noResult bool
		wantErr  bool
		check    func(*testing.T, *domain.Snapshot)
	}{
		{
			name:   "Playing track",
			output: "true|Song|Artist|Album|10|200|embedded\n",
			check: func(t *testing.T, snap *domain.Snapshot) {
				if !snap.IsPlaying || snap.Title != "Song" {
					t.Errorf("unexpected snapshot: %+v", snap)
				}
				if snap.Source != "music" {
					t.Errorf("Source: got %q", snap.Source)
				}
			},
		},
		{
			name:     "App not running sentinel",
			output:   "false|Music not running|||0|1|\n",
			noResult: true,
		},
		{
			name:     "Script failure is no result",
			runErr:   errors.New("osascript: not authorized"),
			noResult: true,
		},
		{
			name:     "Empty output is no result",
			output:   "\n",
			noResult: true,
		},
		{
			name:    "Malformed record is an error",
			output:  "true|Song|Artist\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runner := mocks.NewMockRunner(ctrl)
			runner.EXPECT().
				Run(gomock.Any(), "osascript", "-e", gomock.Any()).
				Return([]byte(tt.output), tt.runErr)

			a := NewMusicAdapter(zap.NewNop(), runner)
			snap, err := a.Fetch(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
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
				t.Fatal("expected a snapshot")
			}
			tt.check(t, snap)
		})
	}
}

func TestSpotifyAdapter_ArtworkURLHint(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().
		Run(gomock.Any(), "osascript", "-e", gomock.Any()).
		Return([]byte("true|Song|Artist|Album|10|200|http://i.scdn.co/image/abc\n"), nil)

	a := NewSpotifyAdapter(zap.NewNop(), runner)
	snap, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ArtworkHint != "http://i.scdn.co/image/abc" {
		t.Errorf("ArtworkHint: got %q", snap.ArtworkHint)
	}
	if snap.Source != "spotify" {
		t.Errorf("Source: got %q", snap.Source)
	}
}

func TestScriptAdapter_QueryArtwork(t *testing.T) {
	t.Run("Music runs the artwork script", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockRunner(ctrl)
		runner.EXPECT().
			Run(gomock.Any(), "osascript", "-e", gomock.Any()).
			Return([]byte{0x89, 0x50, 0x4e, 0x47}, nil)

		a := NewMusicAdapter(zap.NewNop(), runner)
		data, err := a.QueryArtwork(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 4 {
			t.Errorf("expected raw bytes through, got %d bytes", len(data))
		}
	})

	t.Run("Spotify has no artwork script", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		runner := mocks.NewMockRunner(ctrl)

		a := NewSpotifyAdapter(zap.NewNop(), runner)
		data, err := a.QueryArtwork(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data != nil {
			t.Error("expected nil artwork for a URL-hint adapter")
		}
	})
}

func TestScriptAdapter_ProbePermissions(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().
		Run(gomock.Any(), "osascript", "-e", gomock.Any()).
		Return(nil, errors.New("not authorized"))

	a := NewMusicAdapter(zap.NewNop(), runner)
	// Must not panic or propagate the failure.
	a.ProbePermissions(context.Background())
}
