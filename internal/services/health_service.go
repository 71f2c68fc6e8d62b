package services

import (
	"context"
	"runtime"
	"time"
)

// HealthService reports liveness and snapshot state.
type HealthService struct {
	version   string
	store     *SnapshotStore
	startTime time.Time
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status        string        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	Version       string        `json:"version"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	GoVersion     string        `json:"go_version"`
	Snapshot      *SnapshotInfo `json:"snapshot,omitempty"`
}

// SnapshotInfo summarizes the loaded snapshot.
type SnapshotInfo struct {
	ModTime  time.Time      `json:"mod_time"`
	LoadedAt time.Time      `json:"loaded_at"`
	Rows     map[string]int `json:"rows"`
}

// Health status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// NewHealthService creates a new health service
func NewHealthService(version string, store *SnapshotStore) *HealthService {
	return &HealthService{
		version:   version,
		store:     store,
		startTime: time.Now(),
	}
}

// Check reports "ok" when a snapshot is loaded and "degraded" otherwise.
func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:        StatusDegraded,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		GoVersion:     runtime.Version(),
	}
	if snap := h.store.Current(); snap != nil {
		status.Status = StatusOK
		status.Snapshot = &SnapshotInfo{
			ModTime:  snap.ModTime,
			LoadedAt: snap.LoadedAt,
			Rows:     snap.Rows(),
		}
	}
	return status
}
