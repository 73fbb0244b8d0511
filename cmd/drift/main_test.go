package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/drift/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideSceneDefault(t *testing.T) {
	scene, err := provideScene(Options{Workers: 3, SyncPoint: true, Tick: 10 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, 3, scene.Workers)
	assert.True(t, scene.SyncPoint)
	assert.Equal(t, 10*time.Millisecond, scene.Tick)
	require.Len(t, scene.Spawners, 1)
	assert.Equal(t, float32(2.0), scene.Spawners[0].Rate)
}

func TestProvideSceneFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prefabs: [{name: m}]\nspawners: [{prefab: m, rate: 1}]\n"), 0o644))

	scene, err := provideScene(Options{ScenePath: path})
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, scene.Tick)

	_, err = provideScene(Options{ScenePath: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

func TestProvideSceneInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prefabs: [{name: m}]\nspawners: [{prefab: x}]\n"), 0o644))

	_, err := provideScene(Options{ScenePath: path})
	assert.ErrorIs(t, err, config.ErrUnknownPrefab)
}

func TestFixedTickReport(t *testing.T) {
	s, cleanup, err := initializeSimulation(Options{LogLevel: "error"})
	require.NoError(t, err)
	defer cleanup()

	for range 300 {
		s.World.Scheduler.Once(s.Scene.Tick.Seconds())
	}

	var rep Report
	rep.Tick = s.Scene.Tick
	rep.Collect(s.World)

	assert.Equal(t, uint64(300), rep.Ticks)
	assert.InDelta(t, 4.8, rep.Elapsed, 1e-9)
	// Rate 2.0 from t=0: fires at the first tick, then once NextSpawnTime is passed.
	assert.Equal(t, uint64(3), rep.Spawned)
	assert.Equal(t, 3, rep.Movers)
	assert.Equal(t, 4, rep.Entities)
	require.Len(t, rep.Systems, 3)

	var buf bytes.Buffer
	require.NoError(t, rep.Generate(&buf))
	out := buf.String()
	assert.Contains(t, out, "# Drift Run Report")
	assert.Contains(t, out, "(built-in)")
	assert.Contains(t, out, "**Ticks:** 300")
	assert.Contains(t, out, "**Live movers:** 3")
	assert.Contains(t, out, "SpawnerSystem")
	assert.Contains(t, out, "next tick")
}

func TestDriftExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"fixed ticks", []string{"-ticks", "5", "-log-level", "error"}, 0},
		{"missing scene", []string{"-scene", missing, "-log-level", "error"}, 1},
		{"bad log level", []string{"-ticks", "1", "-log-level", "loud"}, 1},
		{"unknown profile", []string{"-profile", "gpu", "-log-level", "error"}, 2},
		{"unknown flag", []string{"-nope"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.want, drift(tt.args, &out))
		})
	}
}

func TestDriftWritesReport(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, 0, drift([]string{"-ticks", "10", "-log-level", "error"}, &out))
	assert.Contains(t, out.String(), "**Ticks:** 10")

	out.Reset()
	require.Equal(t, 0, drift([]string{"-ticks", "10", "-log-level", "error", "-report=false"}, &out))
	assert.Empty(t, out.String())
}
