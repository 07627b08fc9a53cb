package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"handbook/internal/config"
	"handbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRuntime_SQLiteAppliesSchemaAndSeeds(t *testing.T) {
	cfg := &config.Config{
		Env:    "test",
		DBPath: filepath.Join(t.TempDir(), "nested", "handbook.db"),
	}

	rt, err := InitRuntime(context.Background(), cfg, Options{Seed: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Nil(t, rt.Redis)
	assert.Equal(t, int64(7), testutil.CountRows(t, rt.Store, "channels"))
	assert.Equal(t, int64(16), testutil.CountRows(t, rt.Store, "events"))
}

func TestInitRuntime_NoSeed(t *testing.T) {
	cfg := &config.Config{Env: "test", DBPath: filepath.Join(t.TempDir(), "handbook.db")}

	rt, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Equal(t, int64(0), testutil.CountRows(t, rt.Store, "channels"))
}
