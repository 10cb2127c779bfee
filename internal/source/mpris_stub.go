//go:build !linux

package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
)

// MPRISAdapter stub for platforms without a D-Bus session bus. It
// always reports "no result" so a priority list mentioning "mpris"
// simply falls through.
type MPRISAdapter struct {
	logger *zap.Logger
}

// NewMPRISAdapter returns the stub adapter.
func NewMPRISAdapter(logger *zap.Logger) *MPRISAdapter {
	return &MPRISAdapter{logger: logger}
}

// Name returns the source identifier.
func (a *MPRISAdapter) Name() string { return "mpris" }

// Fetch reports "no result" on non-Linux platforms.
func (a *MPRISAdapter) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	return nil, nil
}

// ProbePermissions is a no-op on non-Linux platforms.
func (a *MPRISAdapter) ProbePermissions(ctx context.Context) {}
