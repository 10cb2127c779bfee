// Package command relays playback commands to external players. The
// daemon never verifies a command succeeded; it re-polls shortly after
// and lets reconciliation catch up with reality.
package command

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/config"
	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/source"
)

// Repoller is the slice of the scheduler the sender needs: the ability
// to ask for an early poll after a command was dispatched.
type Repoller interface {
	PollSoon(d time.Duration)
	Current() domain.Snapshot
}

// Sender dispatches playback commands through the subprocess runner.
type Sender struct {
	logger *zap.Logger
	cfg    *config.Config
	runner source.Runner
	sched  Repoller
}

// NewSender creates the command sender.
func NewSender(logger *zap.Logger, cfg *config.Config, runner source.Runner, sched Repoller) *Sender {
	return &Sender{logger: logger, cfg: cfg, runner: runner, sched: sched}
}

// Send dispatches the command best-effort and schedules a prompt
// re-poll so the published snapshot converges on the player's actual
// state. Failures are logged and otherwise ignored.
func (s *Sender) Send(ctx context.Context, cmd domain.Command) {
	cfg := s.cfg.Snapshot()

	target := cmd.Target
	if target == "" {
		target = s.sched.Current().Source
	}

	name, args, err := s.invocation(cfg, target, cmd)
	if err != nil {
		s.logger.Warn("cannot dispatch command",
			zap.String("target", target),
			zap.Error(err))
		return
	}

	if _, err := s.runner.Run(ctx, name, args...); err != nil {
		s.logger.Warn("command dispatch failed",
			zap.String("target", target),
			zap.Error(err))
	}

	s.sched.PollSoon(cfg.CommandRepollDelay)
}

// invocation maps a command to the subprocess that delivers it for the
// given target source.
func (s *Sender) invocation(cfg config.Snapshot, target string, cmd domain.Command) (string, []string, error) {
	switch target {
	case "music", "spotify":
		script, err := appleScriptFor(appNameFor(target), cmd)
		if err != nil {
			return "", nil, err
		}
		return "osascript", []string{"-e", script}, nil
	case source.UniversalName, "":
		verb, err := helperVerbFor(cmd)
		if err != nil {
			return "", nil, err
		}
		args := append([]string{cfg.HelperScript}, verb...)
		return cfg.HelperInterpreter, args, nil
	default:
		return "", nil, fmt.Errorf("source %q accepts no commands", target)
	}
}

func appNameFor(target string) string {
	if target == "music" {
		return "Music"
	}
	return "Spotify"
}

func appleScriptFor(app string, cmd domain.Command) (string, error) {
	switch cmd.Action {
	case domain.CommandPlayPause:
		return fmt.Sprintf("tell application %q to playpause", app), nil
	case domain.CommandNext:
		return fmt.Sprintf("tell application %q to next track", app), nil
	case domain.CommandPrevious:
		return fmt.Sprintf("tell application %q to previous track", app), nil
	case domain.CommandSeek:
		return fmt.Sprintf("tell application %q to set player position to %g", app, cmd.SeekTo), nil
	default:
		return "", fmt.Errorf("unknown command action %d", cmd.Action)
	}
}

func helperVerbFor(cmd domain.Command) ([]string, error) {
	switch cmd.Action {
	case domain.CommandPlayPause:
		return []string{"playpause"}, nil
	case domain.CommandNext:
		return []string{"next"}, nil
	case domain.CommandPrevious:
		return []string{"previous"}, nil
	case domain.CommandSeek:
		return []string{"seek", fmt.Sprintf("%g", cmd.SeekTo)}, nil
	default:
		return nil, fmt.Errorf("unknown command action %d", cmd.Action)
	}
}
