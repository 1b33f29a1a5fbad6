package snapshot_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Globals: snapshot.Attachments{
			"game.Clock": json.RawMessage(`{"Tick":42}`),
		},
		Entities: []snapshot.Entity{
			{
				Id: ecs.NewEntityId(3, 1),
				Components: snapshot.Attachments{
					"game.Position": json.RawMessage(`{"X":1.5,"Y":-2}`),
					"game.Name":     json.RawMessage(`"007"`),
				},
			},
			{
				Id: ecs.NewEntityId(1, 2),
				Components: snapshot.Attachments{
					"game.Follow":   json.RawMessage(`{"Leader":12884901891}`),
					"game.Tags":     json.RawMessage(`["a","b"]`),
					"game.Nothing":  json.RawMessage(`null`),
					"game.Disabled": json.RawMessage(`false`),
				},
			},
		},
	}
}

// assertSameSnapshot compares attachment documents semantically.
func assertSameSnapshot(t *testing.T, want, got *snapshot.Snapshot) {
	t.Helper()
	require.Len(t, got.Entities, len(want.Entities))
	require.Equal(t, want.Globals.Keys(), got.Globals.Keys())
	for _, key := range want.Globals.Keys() {
		assert.JSONEq(t, string(want.Globals[key]), string(got.Globals[key]), "global %s", key)
	}
	for i, entity := range want.Entities {
		assert.Equal(t, entity.Id, got.Entities[i].Id)
		require.Equal(t, entity.Components.Keys(), got.Entities[i].Components.Keys())
		for _, key := range entity.Components.Keys() {
			assert.JSONEq(t, string(entity.Components[key]), string(got.Entities[i].Components[key]), "entity %d %s", i, key)
		}
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	codecs := []snapshot.Codec{
		snapshot.JSON(),
		snapshot.YAML(),
		snapshot.Gzip(snapshot.JSON()),
		snapshot.Gzip(snapshot.YAML()),
	}

	for _, codec := range codecs {
		t.Run(codec.Name(), func(t *testing.T) {
			want := sample()
			data, err := codec.Encode(want)
			require.NoError(t, err)

			got, err := codec.Decode(data)
			require.NoError(t, err)
			assertSameSnapshot(t, want, got)

			again, err := codec.Encode(got)
			require.NoError(t, err)
			assert.Equal(t, data, again, "encoding must be deterministic")
		})
	}
}

func TestJSONSortsKeys(t *testing.T) {
	data, err := snapshot.JSON().Encode(sample())
	require.NoError(t, err)

	disabled := bytes.Index(data, []byte(`"game.Disabled"`))
	follow := bytes.Index(data, []byte(`"game.Follow"`))
	nothing := bytes.Index(data, []byte(`"game.Nothing"`))
	require.True(t, disabled > 0 && follow > 0 && nothing > 0)
	assert.Less(t, disabled, follow)
	assert.Less(t, follow, nothing)
}

func TestJSONEmptySnapshot(t *testing.T) {
	data, err := snapshot.JSON().Encode(&snapshot.Snapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"globals":{},"entities":[]}`, string(data))

	got, err := snapshot.JSON().Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Globals)
	assert.Equal(t, 0, got.Len())
}

func TestJSONDecodeRejectsMalformedInput(t *testing.T) {
	inputs := map[string]string{
		"truncated":     `{"globals":{},"entities":[`,
		"unknown field": `{"globals":{},"entities":[],"version":2}`,
		"trailing data": `{"globals":{},"entities":[]} {}`,
		"bad id":        `{"globals":{},"entities":[{"id":"x","components":{}}]}`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := snapshot.JSON().Decode([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestYAMLIsBlockStyle(t *testing.T) {
	data, err := snapshot.YAML().Encode(sample())
	require.NoError(t, err)

	text := string(data)
	assert.NotContains(t, text, "{")
	assert.NotContains(t, text, "[")
	assert.Contains(t, text, `"007"`)
	assert.Contains(t, text, "game.Position:")
}

func TestYAMLDecodeRejectsMalformedInput(t *testing.T) {
	_, err := snapshot.YAML().Decode([]byte("entities: [\n  - id: 1"))
	assert.Error(t, err)

	_, err = snapshot.YAML().Decode([]byte("entities:\n  - id: not-a-number\n"))
	assert.Error(t, err)
}

func TestGzipCompressesAndRejectsPlainInput(t *testing.T) {
	codec := snapshot.Gzip(snapshot.JSON())

	big := &snapshot.Snapshot{}
	for i := range 200 {
		big.Entities = append(big.Entities, snapshot.Entity{
			Id:         ecs.NewEntityId(uint32(i), 1),
			Components: snapshot.Attachments{"game.Position": json.RawMessage(`{"X":0,"Y":0}`)},
		})
	}
	plain, err := snapshot.JSON().Encode(big)
	require.NoError(t, err)
	packed, err := codec.Encode(big)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(plain))

	_, err = codec.Decode(plain)
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "yaml", "json+gzip", "yaml+gzip"} {
		codec, err := snapshot.ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, codec.Name())
	}

	_, err := snapshot.ByName("xml")
	assert.Error(t, err)
	_, err = snapshot.ByName("gzip")
	assert.Error(t, err)
}

func TestCountByKey(t *testing.T) {
	s := sample()
	s.Entities[1].Components["game.Position"] = json.RawMessage(`{"X":0,"Y":0}`)

	counts := s.CountByKey()
	assert.Equal(t, 2, counts["game.Position"])
	assert.Equal(t, 1, counts["game.Follow"])
	assert.Equal(t, 0, counts["game.Missing"])
}

func TestYAMLKeepsNumberText(t *testing.T) {
	doc := `{"Big":1e400,"Negative":-0,"Small":-1.5e-7,"Text":"1e400","Values":[0.1,12345678901234567890,-7]}`
	snap := &snapshot.Snapshot{
		Entities: []snapshot.Entity{
			{Id: ecs.NewEntityId(0, 1), Components: snapshot.Attachments{"game.Stats": json.RawMessage(doc)}},
		},
	}

	data, err := snapshot.YAML().Encode(snap)
	require.NoError(t, err)
	got, err := snapshot.YAML().Decode(data)
	require.NoError(t, err)

	require.Len(t, got.Entities, 1)
	assert.Equal(t, doc, string(got.Entities[0].Components["game.Stats"]))
}
