package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServe_InvalidConfigExitsNonZero(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("TOKEN_SECRET", "")

	assert.Equal(t, 1, serve())
}

func TestServe_StoreFailureExitsNonZero(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_PATH", filepath.Join(t.TempDir(), "missing-dir", "auth.db"))

	assert.Equal(t, 1, serve())
}

func TestServe_ListenFailureClosesAndExitsNonZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("STORAGE_PATH", path)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("METRICS_ENABLED", "false")

	assert.Equal(t, 1, serve())
	assert.FileExists(t, path)
}
