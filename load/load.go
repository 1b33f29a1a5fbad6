// Package load rebuilds live entities from a snapshot, clearing the entities
// it replaces and translating saved entity references into live ones.
package load

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/event"
	"github.com/plus3/keepsake/filter"
	"github.com/plus3/keepsake/mapper"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
	"go.uber.org/zap"
)

// Unload marks an entity for removal before a load even though it is not
// saved, such as visuals spawned for saved entities.
type Unload struct{}

// RegisterComponents registers the Unload and save.Save markers.
func RegisterComponents(registry *ecs.ComponentRegistry) {
	save.RegisterComponents(registry)
	ecs.RegisterComponent[Unload](registry)
}

// Request configures one load.
type Request struct {
	Source Source
	// Unload selects the live entities removed before instantiating.
	// Defaults to every entity carrying save.Save or Unload.
	Unload filter.Selector
	Mapper *mapper.Mapper
}

// Loaded is published after a successful load. EntityMap is frozen.
type Loaded struct {
	Invocation string
	EntityMap  *snapshot.EntityMap
	// Entities lists the new live ids in snapshot order.
	Entities []ecs.EntityId
	// Dangling lists saved ids that were referenced but not part of the
	// snapshot. Each was given a placeholder entity marked Unload.
	Dangling []ecs.EntityId
	Duration time.Duration
}

// Failed is published when a load aborts. If the failure happened after the
// unload stage, the store has already been cleared.
type Failed struct {
	Invocation string
	Err        error
	Duration   time.Duration
}

// Loader runs the load pipeline against one store. It is not safe for
// concurrent use.
type Loader struct {
	storage *ecs.Storage
	types   *snapshot.TypeRegistry
	codec   snapshot.Codec
	bus     *event.Bus
	logger  *zap.Logger
	active  bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithCodec sets the codec. The default is snapshot.JSON().
func WithCodec(codec snapshot.Codec) Option {
	return func(l *Loader) { l.codec = codec }
}

// WithBus sets the bus terminal events are published on.
func WithBus(bus *event.Bus) Option {
	return func(l *Loader) { l.bus = bus }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader for storage.
func NewLoader(storage *ecs.Storage, types *snapshot.TypeRegistry, opts ...Option) *Loader {
	l := &Loader{
		storage: storage,
		types:   types,
		codec:   snapshot.JSON(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	RegisterComponents(storage.Registry())
	return l
}

// Storage returns the store this loader writes.
func (l *Loader) Storage() *ecs.Storage {
	return l.storage
}

// Load runs the pipeline. Exactly one of Loaded or Failed is published on the
// bus, and the returned error is the one carried by Failed.
func (l *Loader) Load(req Request) (*Loaded, error) {
	inv := uuid.NewString()
	log := l.logger.With(zap.String("op", "load"), zap.String("invocation", inv))
	start := time.Now()

	if l.active {
		err := &snapshot.Error{Op: "load", Stage: "fetch", Kind: snapshot.ErrInProgress}
		return nil, l.fail(log, inv, start, err)
	}
	loaded, err := l.guarded(log, req)

	if err != nil {
		return nil, l.fail(log, inv, start, err)
	}

	loaded.Invocation = inv
	loaded.Duration = time.Since(start)
	log.Info("loaded",
		zap.Int("entities", len(loaded.Entities)),
		zap.Int("dangling", len(loaded.Dangling)),
		zap.Duration("duration", loaded.Duration))
	event.Publish(l.bus, loaded)
	return loaded, nil
}

// guarded runs the pipeline with the loader marked active. The mark is
// cleared even when a mapper function panics.
func (l *Loader) guarded(log *zap.Logger, req Request) (*Loaded, error) {
	l.active = true
	defer func() { l.active = false }()
	return l.run(log, req)
}

func (l *Loader) fail(log *zap.Logger, inv string, start time.Time, err error) error {
	log.Error("load failed", zap.Error(err))
	event.Publish(l.bus, &Failed{Invocation: inv, Err: err, Duration: time.Since(start)})
	return err
}

// decoded is a snapshot whose attachment values are typed.
type decoded struct {
	globals  []any
	entities []decodedEntity
}

type decodedEntity struct {
	saved  ecs.EntityId
	values []any
}

func (l *Loader) run(log *zap.Logger, req Request) (*Loaded, error) {
	if req.Source == nil {
		return nil, snapshot.Fail("load", "fetch", snapshot.ErrIo, errors.New("no source"))
	}
	data, err := req.Source.Read()
	if err != nil {
		return nil, snapshot.Fail("load", "fetch", snapshot.ErrIo, err)
	}
	log.Debug("fetched", zap.Stringer("source", req.Source), zap.Int("bytes", len(data)))

	snap, err := l.codec.Decode(data)
	if err != nil {
		return nil, snapshot.Fail("load", "decode", snapshot.ErrParse, err)
	}
	dec, err := l.decode(snap)
	if err != nil {
		return nil, snapshot.Fail("load", "decode", snapshot.ErrDecode, err)
	}

	unloaded := l.unload(req.Unload)
	log.Debug("unloaded", zap.Int("entities", unloaded))

	emap := snapshot.NewEntityMap(len(dec.entities))
	live, err := l.instantiate(dec, emap)
	if err != nil {
		return nil, snapshot.Fail("load", "instantiate", snapshot.ErrReconstruct, err)
	}

	dangling := l.fixup(dec, live, emap)
	for _, id := range dangling {
		log.Warn("dangling entity reference", zap.Stringer("saved", id))
	}

	for _, id := range live {
		if err := req.Mapper.Replace(l.storage, id); err != nil {
			return nil, snapshot.Fail("load", "post-map", snapshot.ErrReconstruct, fmt.Errorf("entity %s: %w", id, err))
		}
	}

	emap.Freeze()
	return &Loaded{EntityMap: emap, Entities: live, Dangling: dangling}, nil
}

// decode types every attachment. Nothing in the store is touched.
func (l *Loader) decode(snap *snapshot.Snapshot) (*decoded, error) {
	dec := &decoded{entities: make([]decodedEntity, 0, len(snap.Entities))}

	var err error
	if dec.globals, err = l.decodeAttachments(snap.Globals); err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}

	seen := intmap.NewSet[ecs.EntityId](len(snap.Entities))
	for _, entity := range snap.Entities {
		if entity.Id.IsNull() {
			return nil, errors.New("entity with null id")
		}
		if seen.Has(entity.Id) {
			return nil, fmt.Errorf("duplicate entity id %s", entity.Id)
		}
		seen.Add(entity.Id)

		values, err := l.decodeAttachments(entity.Components)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", entity.Id, err)
		}
		dec.entities = append(dec.entities, decodedEntity{saved: entity.Id, values: values})
	}
	return dec, nil
}

func (l *Loader) decodeAttachments(attachments snapshot.Attachments) ([]any, error) {
	values := make([]any, 0, len(attachments))
	for _, key := range attachments.Keys() {
		ti, ok := l.types.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("unregistered type key %q", key)
		}
		value, err := ti.Decode(attachments[key])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		values = append(values, value)
	}
	return values, nil
}

// unload despawns the selected entities and their descendants.
func (l *Loader) unload(selector filter.Selector) int {
	if selector == nil {
		selector = filter.Or(filter.With[save.Save](), filter.With[Unload]())
	}
	n := 0
	for _, id := range selector.Select(l.storage) {
		if !l.storage.Alive(id) {
			continue
		}
		before := l.storage.Len()
		l.storage.DespawnRecursive(id)
		n += before - l.storage.Len()
	}
	return n
}

func (l *Loader) instantiate(dec *decoded, emap *snapshot.EntityMap) ([]ecs.EntityId, error) {
	for _, value := range dec.globals {
		l.storage.AddSingleton(value)
	}

	live := make([]ecs.EntityId, 0, len(dec.entities))
	for _, entity := range dec.entities {
		id := l.storage.SpawnEmpty()
		emap.Insert(entity.saved, id)
		live = append(live, id)

		components := append(entity.values, save.Save{})
		if err := l.storage.Insert(id, components...); err != nil {
			return live, fmt.Errorf("entity %s: %w", entity.saved, err)
		}
	}
	return live, nil
}

// fixup rewrites saved ids held by loaded components and globals. It returns
// the saved ids that had no entity in the snapshot.
func (l *Loader) fixup(dec *decoded, live []ecs.EntityId, emap *snapshot.EntityMap) []ecs.EntityId {
	m := &entityMapper{storage: l.storage, emap: emap}

	for _, value := range dec.globals {
		if r, ok := l.storage.GetSingleton(reflect.TypeOf(value)).(ecs.Remappable); ok {
			r.MapEntities(m)
		}
	}
	for _, id := range live {
		for _, t := range l.storage.Components(id) {
			if r, ok := l.storage.GetComponent(id, t).(ecs.Remappable); ok {
				r.MapEntities(m)
			}
		}
	}
	return m.dangling
}
