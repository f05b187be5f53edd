package payload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		sizeKB int
	}{
		{"empty", 0},
		{"one kilobyte", 1},
		{"larger payload", 257},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data_file")
			require.NoError(t, Generate(path, tt.sizeKB))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.sizeKB)*1024, info.Size())
		})
	}
}

func TestGenerate_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_file")
	require.NoError(t, Generate(path, 4))
	require.NoError(t, Generate(path, 1))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())
}

func TestGenerate_Errors(t *testing.T) {
	assert.Error(t, Generate(filepath.Join(t.TempDir(), "data_file"), -1))
	assert.Error(t, Generate(filepath.Join(t.TempDir(), "missing", "data_file"), 1))
}
