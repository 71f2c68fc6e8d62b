package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperrors "cotcli/internal/errors"
)

// LockInfo is the content of the lock file.
type LockInfo struct {
	PID          int       `json:"pid"`
	StartedAtUTC time.Time `json:"started_at_utc"`
	RunID        string    `json:"run_id"`
}

// Lock is a held run lock.
type Lock struct {
	path string
	info LockInfo
}

// AcquireLock creates the lock file exclusively. A lock that already exists
// yields a LOCKED error carrying the holder's details when readable.
func AcquireLock(path, runID string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.NewStorageError("create lock directory", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		lockErr := apperrors.NewLockedError(path, err)
		if holder, rerr := ReadLock(path); rerr == nil {
			lockErr = lockErr.
				WithContext("holder_pid", holder.PID).
				WithContext("holder_run_id", holder.RunID).
				WithContext("holder_started_at", holder.StartedAtUTC)
		}
		return nil, lockErr
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("create lock file %s", path), err)
	}

	info := LockInfo{
		PID:          os.Getpid(),
		StartedAtUTC: time.Now().UTC(),
		RunID:        runID,
	}
	werr := json.NewEncoder(f).Encode(info)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(path)
		return nil, apperrors.NewStorageError("write lock file", err)
	}
	return &Lock{path: path, info: info}, nil
}

// Info returns what was written to the lock file.
func (l *Lock) Info() LockInfo { return l.info }

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewStorageError("remove lock file", err)
	}
	return nil
}

// ReadLock decodes an existing lock file.
func ReadLock(path string) (LockInfo, error) {
	var info LockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("decode lock file %s: %w", path, err)
	}
	return info, nil
}
