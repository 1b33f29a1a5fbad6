// Package save captures a filtered part of a live store into a snapshot and
// writes it to a sink.
package save

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/event"
	"github.com/plus3/keepsake/filter"
	"github.com/plus3/keepsake/mapper"
	"github.com/plus3/keepsake/snapshot"
	"go.uber.org/zap"
)

// Save marks an entity as save-managed. It is never written itself.
type Save struct{}

// RegisterComponents registers the Save marker.
func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Save](registry)
}

// Request configures one save.
type Request struct {
	// Entities defaults to every entity carrying Save.
	Entities filter.Selector
	// Components defaults to every registered type.
	Components *filter.TypeFilter
	// Globals defaults to none.
	Globals *filter.TypeFilter
	Mapper  *mapper.Mapper
	Sink    Sink
}

func (r *Request) withDefaults() Request {
	out := *r
	if out.Entities == nil {
		out.Entities = filter.With[Save]()
	}
	if out.Components == nil {
		out.Components = filter.AllowAll()
	}
	if out.Globals == nil {
		out.Globals = filter.DenyAll()
	}
	return out
}

// Saved is published after a successful save.
type Saved struct {
	Invocation string
	Snapshot   *snapshot.Snapshot
	Entities   []ecs.EntityId
	Bytes      int
	Duration   time.Duration
}

// Failed is published when a save aborts.
type Failed struct {
	Invocation string
	Err        error
	Duration   time.Duration
}

// Saver runs the save pipeline against one store. It is not safe for
// concurrent use.
type Saver struct {
	storage *ecs.Storage
	types   *snapshot.TypeRegistry
	codec   snapshot.Codec
	bus     *event.Bus
	logger  *zap.Logger
	active  bool
}

// Option configures a Saver.
type Option func(*Saver)

// WithCodec sets the codec. The default is snapshot.JSON().
func WithCodec(codec snapshot.Codec) Option {
	return func(s *Saver) { s.codec = codec }
}

// WithBus sets the bus terminal events are published on.
func WithBus(bus *event.Bus) Option {
	return func(s *Saver) { s.bus = bus }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Saver) { s.logger = logger }
}

// NewSaver creates a saver for storage. Only types in types are persisted.
func NewSaver(storage *ecs.Storage, types *snapshot.TypeRegistry, opts ...Option) *Saver {
	s := &Saver{
		storage: storage,
		types:   types,
		codec:   snapshot.JSON(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	RegisterComponents(storage.Registry())
	return s
}

// Storage returns the store this saver reads.
func (s *Saver) Storage() *ecs.Storage {
	return s.storage
}

// Save runs the pipeline. Exactly one of Saved or Failed is published on the
// bus, and the returned error is the one carried by Failed.
func (s *Saver) Save(req Request) (*Saved, error) {
	inv := uuid.NewString()
	log := s.logger.With(zap.String("op", "save"), zap.String("invocation", inv))
	start := time.Now()

	if s.active {
		err := &snapshot.Error{Op: "save", Stage: "select", Kind: snapshot.ErrInProgress}
		return nil, s.fail(log, inv, start, err)
	}
	saved, err := s.guarded(log, req.withDefaults())

	if err != nil {
		return nil, s.fail(log, inv, start, err)
	}

	saved.Invocation = inv
	saved.Duration = time.Since(start)
	log.Info("saved",
		zap.Int("entities", len(saved.Entities)),
		zap.Int("bytes", saved.Bytes),
		zap.Duration("duration", saved.Duration))
	event.Publish(s.bus, saved)
	return saved, nil
}

// guarded runs the pipeline with the saver marked active. The mark is
// cleared even when a mapper function panics.
func (s *Saver) guarded(log *zap.Logger, req Request) (*Saved, error) {
	s.active = true
	defer func() { s.active = false }()
	return s.run(log, req)
}

func (s *Saver) fail(log *zap.Logger, inv string, start time.Time, err error) error {
	log.Error("save failed", zap.Error(err))
	event.Publish(s.bus, &Failed{Invocation: inv, Err: err, Duration: time.Since(start)})
	return err
}

// run executes select through write. Surrogates are always stripped before it
// returns.
func (s *Saver) run(log *zap.Logger, req Request) (saved *Saved, err error) {
	ids := req.Entities.Select(s.storage)
	log.Debug("selected", zap.Int("entities", len(ids)))

	defer func() {
		for _, id := range ids {
			req.Mapper.Undo(s.storage, id)
		}
	}()

	for _, id := range ids {
		if err := req.Mapper.Apply(s.storage, id); err != nil {
			return nil, snapshot.Fail("save", "pre-map", snapshot.ErrEncode, fmt.Errorf("entity %s: %w", id, err))
		}
	}

	snap, err := s.build(log, ids, req)
	if err != nil {
		return nil, snapshot.Fail("save", "build", snapshot.ErrEncode, err)
	}

	data, err := s.codec.Encode(snap)
	if err != nil {
		return nil, snapshot.Fail("save", "encode", snapshot.ErrEncode, err)
	}

	if req.Sink == nil {
		return nil, snapshot.Fail("save", "write", snapshot.ErrIo, errors.New("no sink"))
	}
	if err := req.Sink.Write(data); err != nil {
		return nil, snapshot.Fail("save", "write", snapshot.ErrIo, err)
	}
	log.Debug("written", zap.Stringer("sink", req.Sink), zap.Int("bytes", len(data)))

	return &Saved{Snapshot: snap, Entities: ids, Bytes: len(data)}, nil
}

func (s *Saver) build(log *zap.Logger, ids []ecs.EntityId, req Request) (*snapshot.Snapshot, error) {
	snap := snapshot.New(len(ids))

	for _, id := range ids {
		entity := snapshot.Entity{Id: id, Components: make(snapshot.Attachments)}
		for _, t := range s.storage.Components(id) {
			ti, ok := s.types.LookupType(t)
			if !ok {
				log.Debug("skipping unregistered component", zap.Stringer("entity", id), zap.Stringer("type", t))
				continue
			}
			if !req.Components.Allows(ti.Key) {
				continue
			}
			raw, err := ti.Encode(s.storage.GetComponent(id, t))
			if err != nil {
				return nil, fmt.Errorf("entity %s %q: %w", id, ti.Key, err)
			}
			entity.Components[ti.Key] = raw
		}
		snap.Entities = append(snap.Entities, entity)
	}

	for t, ptr := range s.storage.Singletons() {
		ti, ok := s.types.LookupType(t)
		if !ok || !req.Globals.Allows(ti.Key) {
			continue
		}
		raw, err := ti.Encode(ptr)
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", ti.Key, err)
		}
		snap.Globals[ti.Key] = raw
	}

	return snap, nil
}
