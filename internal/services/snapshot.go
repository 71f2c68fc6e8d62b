package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cotcli/internal/config"
	"cotcli/internal/cot"
	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
	"cotcli/internal/infrastructure"
)

// Snapshot is one published set of tables.
type Snapshot struct {
	// ModTime is the modification time of the metrics table it was read from.
	ModTime  time.Time
	LoadedAt time.Time

	Metrics     *frame.Frame
	Radar       *frame.Frame
	Positioning *frame.Frame
}

// Rows returns the row count per table.
func (s *Snapshot) Rows() map[string]int {
	return map[string]int{
		cot.TableMetrics:     s.Metrics.Len(),
		cot.TableRadar:       s.Radar.Len(),
		cot.TablePositioning: s.Positioning.Len(),
	}
}

// SnapshotStore holds the current snapshot.
type SnapshotStore struct {
	paths   *config.Paths
	logger  *slog.Logger
	metrics *infrastructure.Metrics

	// reload serializes loads; mu guards current.
	reload  sync.Mutex
	mu      sync.RWMutex
	current *Snapshot
}

// NewSnapshotStore creates an empty store reading from paths.ComputeDir.
// metrics may be nil.
func NewSnapshotStore(paths *config.Paths, metrics *infrastructure.Metrics, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{
		paths:   paths,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "snapshot_store")),
	}
}

// Current returns the loaded snapshot, or nil before the first load.
func (s *SnapshotStore) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload reads the tables again when the metrics table changed since the
// last load. It reports whether a new snapshot was installed. A failed
// reload keeps the previous snapshot.
func (s *SnapshotStore) Reload(ctx context.Context) (bool, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	info, err := os.Stat(s.paths.TablePath(cot.TableMetrics))
	if err != nil {
		err = apperrors.NewStorageError("stat metrics table", err)
		s.metrics.RecordReload(ctx, err)
		return false, err
	}
	if cur := s.Current(); cur != nil && cur.ModTime.Equal(info.ModTime()) {
		return false, nil
	}

	snap, err := s.load(ctx, info.ModTime())
	s.metrics.RecordReload(ctx, err)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "snapshot loaded",
		slog.Time("mod_time", snap.ModTime),
		slog.Int("metrics_rows", snap.Metrics.Len()),
		slog.Int("radar_rows", snap.Radar.Len()),
		slog.Int("positioning_rows", snap.Positioning.Len()))
	return true, nil
}

func (s *SnapshotStore) load(ctx context.Context, modTime time.Time) (*Snapshot, error) {
	snap := &Snapshot{ModTime: modTime}
	targets := []struct {
		name string
		dst  **frame.Frame
	}{
		{cot.TableMetrics, &snap.Metrics},
		{cot.TableRadar, &snap.Radar},
		{cot.TablePositioning, &snap.Positioning},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := readTable(s.paths.TablePath(t.name), t.name)
			if err != nil {
				return err
			}
			*t.dst = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.LoadedAt = time.Now().UTC()
	return snap, nil
}

func readTable(path, name string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("open %s", name), err)
	}
	defer fh.Close()
	f, err := frame.ReadCSV(name, fh)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read %s", name), err)
	}
	return f, nil
}

// Watch polls for a new snapshot every interval until ctx is done.
func (s *SnapshotStore) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "snapshot reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
