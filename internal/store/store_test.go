package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/clambin/humidifier-cycler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type targetStore interface {
	Load(context.Context) (float64, bool, error)
	Save(context.Context, float64) error
}

func TestStores(t *testing.T) {
	tests := []struct {
		name string
		make func(t *testing.T) targetStore
	}{
		{
			name: "file",
			make: func(t *testing.T) targetStore {
				return store.File{Path: filepath.Join(t.TempDir(), "persistence.json")}
			},
		},
		{
			name: "sqlite",
			make: func(t *testing.T) targetStore {
				s, err := store.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "db", "cycler.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			s := tt.make(t)

			_, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Save(ctx, 60))
			target, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 60.0, target)

			require.NoError(t, s.Save(ctx, 75.5))
			target, ok, err = s.Load(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 75.5, target)
		})
	}
}

func TestFile_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistence.json")
	s := store.File{Path: path}

	require.NoError(t, s.Save(t.Context(), 50))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"target": 50}`, string(body))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFile_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantOK  bool
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "valid", content: `{"target": 30}`, want: 30, wantOK: true, wantErr: assert.NoError},
		{name: "no target", content: `{}`, wantErr: assert.NoError},
		{name: "invalid", content: `not json`, wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "persistence.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			target, ok, err := store.File{Path: path}.Load(t.Context())
			tt.wantErr(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, target)
		})
	}
}

func TestFile_Save_MissingDirectory(t *testing.T) {
	s := store.File{Path: filepath.Join(t.TempDir(), "missing", "persistence.json")}
	assert.Error(t, s.Save(t.Context(), 10))
}
