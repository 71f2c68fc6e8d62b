package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthService_Check(t *testing.T) {
	paths := testPaths(t)
	store := NewSnapshotStore(paths, nil, nil)
	svc := NewHealthService("1.2.3", store)

	status := svc.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Nil(t, status.Snapshot)

	publish(t, paths, testMarkets(t).Catalog())
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	status = svc.Check(context.Background())
	assert.Equal(t, StatusOK, status.Status)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, 140, status.Snapshot.Rows["metrics_weekly"])
	assert.NotEmpty(t, status.GoVersion)
}
