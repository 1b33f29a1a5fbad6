package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/keepsake/config"
	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunStress(t *testing.T) {
	cfg = config.Default()
	cfg.Slots.InMemory = true
	cfg.Stress.Entities = 20
	cfg.Stress.Children = 2
	cfg.Stress.SaveEvery = 5
	cfg.Stress.Duration = 50 * time.Millisecond
	logger = zaptest.NewLogger(t)

	report, err := runStress(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Live)
	assert.Equal(t, report.Live, report.Loaded)
	assert.Zero(t, report.Dangling)
	assert.GreaterOrEqual(t, report.Operations, 1.0)
	assert.Positive(t, report.SnapshotBytes)
	assert.Equal(t, "json", report.Codec)

	var out bytes.Buffer
	require.NoError(t, report.Generate(&out))
	assert.Contains(t, out.String(), "Keepsake Stress Report")
}

func TestPopulateBuildsHierarchy(t *testing.T) {
	types := newTypes()
	save.RegisterComponents(types.Components())
	storage := ecs.NewStorage(types.Components())
	populate(storage, 3, 2)

	assert.Equal(t, 9, storage.Len())
	parents := ecs.NewView[struct{ *ecs.Children }](storage)
	assert.Equal(t, 3, parents.Count())
	for _, p := range parents.Iter() {
		assert.Len(t, p.Children.Ids, 2)
	}
}

func TestConvertAndInspect(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "world.json")
	out := filepath.Join(dir, "world.yaml")

	snap := &snapshot.Snapshot{
		Globals: snapshot.Attachments{"stress.Clock": json.RawMessage(`{"Frame":3}`)},
		Entities: []snapshot.Entity{
			{Id: ecs.NewEntityId(0, 1), Components: snapshot.Attachments{"stress.Health": json.RawMessage(`{"Current":1,"Max":2}`)}},
			{Id: ecs.NewEntityId(1, 1), Components: snapshot.Attachments{"stress.Health": json.RawMessage(`{"Current":2,"Max":2}`)}},
		},
	}
	data, err := snapshot.JSON().Encode(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"convert", in, out, "--from", "json", "--to", "yaml"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "wrote 2 entities")

	stdout.Reset()
	rootCmd.SetArgs([]string{"inspect", out, "--codec", "yaml"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "stress.Clock")
	assert.Regexp(t, `component\s+stress.Health\s+2`, stdout.String())
}
