package load_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/load"
	"github.com/plus3/keepsake/mapper"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
	"github.com/stretchr/testify/require"
)

type Name struct{ Value string }

type Follow struct {
	Leader ecs.EntityId
}

func (f *Follow) MapEntities(m ecs.EntityMapper) {
	f.Leader = m.MapOrReserve(f.Leader)
}

// Camera is a global that tracks an entity.
type Camera struct {
	Target ecs.EntityId
}

func (c *Camera) MapEntities(m ecs.EntityMapper) {
	c.Target = m.MapOrReserve(c.Target)
}

// Kind is a plain string component.
type Kind string

type Melee struct{ Damage int }
type Ranged struct{ Range float32 }

type Secret struct{ Value string }
type Plain struct{ Value string }

type Sprite struct{ Asset string }

var (
	saveType   = reflect.TypeFor[save.Save]()
	cameraType = reflect.TypeFor[Camera]()
	unloadType = reflect.TypeFor[load.Unload]()
)

type world struct {
	storage *ecs.Storage
	types   *snapshot.TypeRegistry
	saver   *save.Saver
	loader  *load.Loader
}

func newWorld(opts ...load.Option) *world {
	components := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Secret](components)
	ecs.RegisterComponent[Sprite](components)

	types := snapshot.NewTypeRegistry(components)
	snapshot.Register[Name](types, "test.Name")
	snapshot.Register[Follow](types, "test.Follow")
	snapshot.Register[Camera](types, "test.Camera")
	snapshot.Register[Kind](types, "test.Kind")
	snapshot.Register[Melee](types, "test.Melee")
	snapshot.Register[Ranged](types, "test.Ranged")
	snapshot.Register[Plain](types, "test.Plain")

	storage := ecs.NewStorage(components)
	return &world{
		storage: storage,
		types:   types,
		saver:   save.NewSaver(storage, types),
		loader:  load.NewLoader(storage, types, opts...),
	}
}

func (w *world) save(t *testing.T, req save.Request) []byte {
	t.Helper()
	var buf bytes.Buffer
	req.Sink = save.Memory(&buf)
	_, err := w.saver.Save(req)
	require.NoError(t, err)
	return buf.Bytes()
}

func (w *world) load(t *testing.T, data []byte, m *mapper.Mapper) *load.Loaded {
	t.Helper()
	loaded, err := w.loader.Load(load.Request{Source: load.Memory(data), Mapper: m})
	require.NoError(t, err)
	return loaded
}

func names(storage *ecs.Storage) map[string]ecs.EntityId {
	out := make(map[string]ecs.EntityId)
	for id := range storage.Entities() {
		if name := ecs.ReadComponent[Name](storage, id); name != nil {
			out[name.Value] = id
		}
	}
	return out
}
