package source

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/normalize"
)

// FileAdapter reads the status of a player that publishes its state
// through a well-known cache file written by an external helper. The
// file carries the first six delimited fields; the artwork hint is
// synthesized here as the sibling artwork file the helper writes next
// to it.
type FileAdapter struct {
	logger      *zap.Logger
	name        string
	statusPath  string
	artworkPath string
}

// NewFileAdapter returns an adapter reading statusPath, with artwork
// expected at artworkPath when present.
func NewFileAdapter(logger *zap.Logger, name, statusPath, artworkPath string) *FileAdapter {
	return &FileAdapter{
		logger:      logger,
		name:        name,
		statusPath:  statusPath,
		artworkPath: artworkPath,
	}
}

// Name returns the source identifier.
func (a *FileAdapter) Name() string { return a.name }

// Fetch reads and normalizes the cache file. A missing or unreadable
// file means the helper is not running, which is indistinguishable from
// idle and reported as "no result".
func (a *FileAdapter) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(a.statusPath)
	if err != nil {
		a.logger.Debug("status file unavailable, treating as no result",
			zap.String("source", a.name),
			zap.String("path", a.statusPath),
			zap.Error(err))
		return nil, nil
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		return nil, nil
	}

	// The helper writes six fields; append the artwork hint so the line
	// matches the canonical record. The hint stays empty when no
	// artwork file exists yet.
	hint := ""
	if a.artworkPath != "" {
		if _, err := os.Stat(a.artworkPath); err == nil {
			hint = a.artworkPath
		}
	}

	snap, err := normalize.Delimited(line+"|"+hint, a.name)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ProbePermissions is a no-op: reading a file in the user's home needs
// no OS prompt.
func (a *FileAdapter) ProbePermissions(ctx context.Context) {}
