package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cotcli/internal/errors"
	"cotcli/internal/shared/testutil"
)

func TestFileValidator_ValidateInputFile(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "canonical.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n"), 0644))

	tests := []struct {
		name    string
		path    string
		exts    []string
		wantErr bool
	}{
		{"valid", csvPath, []string{".csv"}, false},
		{"any extension", csvPath, nil, false},
		{"wrong extension", csvPath, []string{".yaml", ".yml"}, true},
		{"missing", filepath.Join(dir, "nope.csv"), nil, true},
		{"directory", dir, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputFile(tt.path, tt.exts...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "data", "compute")

	require.NoError(t, v.ValidateOutputDirectory(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(blocker, "sub")))
}
