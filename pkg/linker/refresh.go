package linker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/bastiangx/wordlink/pkg/entity"
	"golang.org/x/sync/errgroup"
)

// Ref identifies an entity in a source snapshot.
type Ref struct {
	ID      string
	ModTime time.Time
}

// Source enumerates entities and loads their metadata.
// Load may be called from several goroutines at once.
type Source interface {
	List(ctx context.Context) ([]Ref, error)
	Load(ctx context.Context, id string) (*entity.Entity, error)
}

// RefreshStats summarizes a Refresh call.
type RefreshStats struct {
	Full    bool `msgpack:"full"`
	Indexed int  `msgpack:"indexed"`
	Skipped int  `msgpack:"skipped"`
	Removed int  `msgpack:"removed"`
	Failed  int  `msgpack:"failed"`
}

// Refresh brings the index in line with a fresh snapshot of src.
//
// Entities missing from the snapshot are removed. Without hints, or when the
// snapshot size differs from the indexed count, every entity is reloaded,
// skipping those whose modification time is unchanged. Otherwise only the
// hinted IDs are reloaded. A failure to load or index one entity is logged and
// leaves its previous state in place.
func (ix *Index) Refresh(ctx context.Context, src Source, hints ...string) (RefreshStats, error) {
	var stats RefreshStats

	refs, err := src.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list entities: %w", err)
	}

	present := make(map[string]Ref, len(refs))
	for _, r := range refs {
		present[r.ID] = r
	}

	stats.Full = len(hints) == 0 || len(refs) != len(ix.mtimes)

	for id := range ix.mtimes {
		if _, ok := present[id]; ok {
			continue
		}
		delete(ix.mtimes, id)
		if ix.Remove(id) {
			stats.Removed++
		}
	}

	var targets []Ref
	if stats.Full {
		for _, r := range refs {
			if seen, ok := ix.mtimes[r.ID]; ok && !r.ModTime.IsZero() && seen.Equal(r.ModTime) {
				stats.Skipped++
				continue
			}
			targets = append(targets, r)
		}
	} else {
		seen := make(map[string]bool, len(hints))
		for _, id := range hints {
			if r, ok := present[id]; ok && !seen[id] {
				seen[id] = true
				targets = append(targets, r)
			}
		}
	}

	loaded, err := ix.load(ctx, src, targets)
	if err != nil {
		return stats, err
	}
	for i, e := range loaded {
		if e == nil {
			ix.markFailed(targets[i].ID)
			stats.Failed++
			continue
		}
		err := ix.Put(e)
		switch {
		case err == nil:
			stats.Indexed++
		case errors.Is(err, ErrIneligible):
			stats.Skipped++
		default:
			ix.log.Warn("skipping entity", "id", targets[i].ID, "err", err)
			ix.markFailed(targets[i].ID)
			stats.Failed++
		}
	}

	ix.log.Debug("refresh done",
		"full", stats.Full,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"removed", stats.Removed,
		"failed", stats.Failed)
	return stats, ctx.Err()
}

// markFailed keeps id in the known set without an mtime, so it is retried by
// the next full refresh but does not force one.
func (ix *Index) markFailed(id string) {
	if _, ok := ix.mtimes[id]; !ok {
		ix.mtimes[id] = time.Time{}
	}
}

// load fetches targets concurrently. Failed loads leave a nil slot.
func (ix *Index) load(ctx context.Context, src Source, targets []Ref) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, r := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := src.Load(gctx, r.ID)
			if err != nil {
				ix.log.Warn("failed to load entity", "id", r.ID, "err", err)
				return nil
			}
			if e.ModTime.IsZero() {
				e.ModTime = r.ModTime
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	return out, nil
}
