package model_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/habitflow/internal/model"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.Path)
	assert.Equal(t, 60, cfg.Retention.SweepIntervalMin)
	assert.True(t, cfg.Reminders.Enabled)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	want := &model.AppConfig{
		Storage:   model.StorageConfig{Path: "/tmp/habitflow.db"},
		Retention: model.RetentionConfig{SweepIntervalMin: 15},
		Reminders: model.ReminderConfig{Enabled: true, Timezone: "Europe/Berlin"},
	}
	require.NoError(t, model.SaveConfig(path, want))

	got, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_InvalidIntervalFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &model.AppConfig{
		Storage:   model.StorageConfig{Path: "x.db"},
		Retention: model.RetentionConfig{SweepIntervalMin: -5},
	}
	require.NoError(t, model.SaveConfig(path, cfg))

	got, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60, got.Retention.SweepIntervalMin)
}
