// Package reconcile merges freshly polled snapshots into the
// authoritative one and decides what, if anything, must happen to the
// displayed artwork as a result.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/domain"
)

// Reconciler applies the merge rules. It is stateless; both snapshots
// are passed in and a new merged value is returned, so it can run on
// the scheduler's owning goroutine without locking.
type Reconciler struct {
	logger *zap.Logger
}

// New returns a Reconciler.
func New(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Merge folds next into prev and returns the merged snapshot plus the
// artwork action the scheduler must carry out.
//
// Play state, position, and duration always come from next: they change
// every cycle and must update without touching artwork. Artwork and
// colors are carried over from prev unless the track identity (title or
// artist) changed, the producing source changed, or next carries a
// freshly decoded image the current state lacks.
func (r *Reconciler) Merge(next, prev domain.Snapshot) (domain.Snapshot, domain.ArtworkAction) {
	merged := next

	identityChanged := next.Title != prev.Title || next.Artist != prev.Artist
	sourceChanged := next.Source != prev.Source

	switch {
	case identityChanged:
		if next.Artwork != nil {
			// The universal family delivers artwork inline with the
			// status reply; adopt it directly. Colors are derived by
			// the scheduler once, after the merge.
			r.logger.Debug("track changed, adopting inline artwork",
				zap.String("title", next.Title),
				zap.String("source", next.Source))
			return merged, domain.ArtworkAction{Kind: domain.ArtworkNone}
		}
		merged.Artwork = nil
		merged.DominantColor = nil
		merged.Palette = nil
		r.logger.Debug("track changed, artwork refresh required",
			zap.String("title", next.Title),
			zap.String("hint", next.ArtworkHint))
		return merged, domain.ArtworkAction{Kind: domain.ArtworkFetch, Hint: next.ArtworkHint}

	case sourceChanged:
		// Same title from a different source, e.g. two players queued
		// up on the same song. Clear immediately so art from the old
		// source is never shown attributed to the new one, then fetch
		// under the new key.
		merged.Artwork = nil
		merged.DominantColor = nil
		merged.Palette = nil
		r.logger.Debug("source changed, invalidating artwork",
			zap.String("from", prev.Source),
			zap.String("to", next.Source))
		return merged, domain.ArtworkAction{Kind: domain.ArtworkInvalidate, Hint: next.ArtworkHint}

	default:
		if next.Artwork != nil && prev.Artwork == nil {
			// Covers the universal adapter re-sending the same image on
			// every poll while only the position moves: adopt it once.
			return merged, domain.ArtworkAction{Kind: domain.ArtworkNone}
		}
		// No identity or source change: keep the artwork and colors we
		// already resolved; only the volatile fields update.
		merged.Artwork = prev.Artwork
		merged.ArtworkHint = prev.ArtworkHint
		merged.DominantColor = prev.DominantColor
		merged.Palette = prev.Palette
		return merged, domain.ArtworkAction{Kind: domain.ArtworkNone}
	}
}
