package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/artwork"
	"github.com/playhead-dev/playhead/internal/command"
	"github.com/playhead-dev/playhead/internal/config"
	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/logger"
	"github.com/playhead-dev/playhead/internal/reconcile"
	"github.com/playhead-dev/playhead/internal/scheduler"
	"github.com/playhead-dev/playhead/internal/source"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "playheadd",
		Short:        "Now-playing aggregation daemon",
		Long:         "playheadd polls the configured media sources, reconciles them into a single now-playing state, and publishes it with artwork-derived colors.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
	return root
}

// AppOptions is the full dependency graph, shared with the graph
// validation test.
var AppOptions = fx.Options(
	fx.Provide(
		config.Load,
		newLogger,
		newRunner,
		newAdapters,
		reconcile.New,
		artwork.NewHTTPFetcher,
		artwork.NewCache,
		scheduler.New,
		newSender,
	),
	fx.Invoke(registerHooks),
)

func runDaemon() error {
	app := fx.New(
		AppOptions,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
	app.Run()
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Snapshot().Log)
}

func newRunner() source.Runner {
	return source.NewExecRunner()
}

// newAdapters builds every source adapter the daemon knows. The
// priority order and enabled set in the configuration decide which of
// them are actually polled.
func newAdapters(log *zap.Logger, cfg *config.Config, runner source.Runner) []domain.SourceAdapter {
	snap := cfg.Snapshot()
	return []domain.SourceAdapter{
		source.NewMusicAdapter(log, runner),
		source.NewSpotifyAdapter(log, runner),
		source.NewFileAdapter(log, "cider", snap.StatusFilePath, snap.ArtworkFilePath),
		source.NewMPRISAdapter(log),
		source.NewUniversalAdapter(log, runner, snap.HelperInterpreter, snap.HelperScript),
	}
}

func newSender(log *zap.Logger, cfg *config.Config, runner source.Runner, sched *scheduler.Scheduler) *command.Sender {
	return command.NewSender(log, cfg, runner, sched)
}

func registerHooks(
	lc fx.Lifecycle,
	log *zap.Logger,
	sched *scheduler.Scheduler,
	adapters []domain.SourceAdapter,
	sender *command.Sender,
) {
	var cancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, c := context.WithCancel(context.Background())
			cancel = c

			// Fire the OS permission prompts once, off the startup
			// path. Failures are deliberately ignored.
			go func() {
				for _, a := range adapters {
					a.ProbePermissions(runCtx)
				}
			}()

			go sched.Run(runCtx)
			go announce(runCtx, log, sched.Subscribe())

			log.Info("playheadd started", zap.String("version", version))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			select {
			case <-sched.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Info("playheadd stopped")
			return nil
		},
	})
}

// announce logs track transitions from the published snapshot stream.
// It is the daemon's own observer; presentation layers subscribe the
// same way.
func announce(ctx context.Context, log *zap.Logger, updates <-chan domain.Snapshot) {
	var last domain.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.SameTrack(last) {
				continue
			}
			last = snap
			if snap.IsIdle() {
				log.Info("nothing playing")
				continue
			}
			fields := []zap.Field{
				zap.String("title", snap.Title),
				zap.String("artist", snap.Artist),
				zap.String("source", snap.Source),
				zap.Bool("playing", snap.IsPlaying),
			}
			if snap.DominantColor != nil {
				fields = append(fields, zap.String("color", snap.DominantColor.Hex()))
			}
			log.Info("now playing", fields...)
		}
	}
}
