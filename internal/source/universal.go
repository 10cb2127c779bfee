package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/normalize"
)

// UniversalName is the source identifier of the universal adapter.
const UniversalName = "mediaremote"

// UniversalAdapter queries the system-wide media session through an
// external helper: an interpreter plus script pair resolved from a
// known install location, invoked with a "get" verb and answering in
// JSON on stdout. Unlike the per-application adapters it sees every
// player the OS knows about, at the cost of needing the helper
// installed.
type UniversalAdapter struct {
	logger      *zap.Logger
	runner      Runner
	interpreter string
	script      string
	now         func() time.Time
}

// NewUniversalAdapter builds the adapter for the given helper pair.
func NewUniversalAdapter(logger *zap.Logger, runner Runner, interpreter, script string) *UniversalAdapter {
	return &UniversalAdapter{
		logger:      logger,
		runner:      runner,
		interpreter: interpreter,
		script:      script,
		now:         time.Now,
	}
}

// Name returns the source identifier.
func (a *UniversalAdapter) Name() string { return UniversalName }

// Fetch invokes the helper and normalizes its JSON reply. A non-zero
// exit, malformed JSON, or missing title all mean "no result". The
// normalizer estimates the current position from the helper's reference
// timestamp to compensate for polling latency.
func (a *UniversalAdapter) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	out, err := a.runner.Run(ctx, a.interpreter, a.script, "get")
	if err != nil {
		a.logger.Debug("helper invocation failed, treating as no result",
			zap.String("source", a.Name()),
			zap.Error(err))
		return nil, nil
	}

	snap, err := normalize.Universal(out, a.Name(), a.now())
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ProbePermissions runs one throwaway "get" so any OS prompt tied to
// the helper fires at startup.
func (a *UniversalAdapter) ProbePermissions(ctx context.Context) {
	if _, err := a.runner.Run(ctx, a.interpreter, a.script, "get"); err != nil {
		a.logger.Debug("permission probe failed",
			zap.String("source", a.Name()),
			zap.Error(err))
	}
}
