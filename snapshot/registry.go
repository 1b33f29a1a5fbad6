package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/plus3/keepsake/ecs"
)

// Well-known keys of the hierarchy components, registered by every
// TypeRegistry.
const (
	ParentKey   TypeKey = "ecs.Parent"
	ChildrenKey TypeKey = "ecs.Children"
)

// ErrDuplicateKey is the panic value (wrapped) when a key or type is
// registered twice with different bindings.
var ErrDuplicateKey = errors.New("snapshot: duplicate type registration")

// TypeInfo describes how one persisted type is encoded and decoded.
type TypeInfo struct {
	Key    TypeKey
	Type   reflect.Type
	encode func(ptr any) (json.RawMessage, error)
	decode func(data json.RawMessage) (any, error)
}

// Encode serializes a pointer to a value of the registered type.
func (ti *TypeInfo) Encode(ptr any) (json.RawMessage, error) {
	return ti.encode(ptr)
}

// Decode deserializes data into a value (not a pointer) of the registered type.
func (ti *TypeInfo) Decode(data json.RawMessage) (any, error) {
	return ti.decode(data)
}

// TypeRegistry maps type keys to persisted component and global types. Only
// registered types are ever written to a snapshot; a type missing here is
// treated as not serializable.
type TypeRegistry struct {
	components *ecs.ComponentRegistry
	byKey      map[TypeKey]*TypeInfo
	byType     map[reflect.Type]*TypeInfo
}

// NewTypeRegistry creates a registry on top of the given component registry.
// Types registered here are also registered as components.
func NewTypeRegistry(components *ecs.ComponentRegistry) *TypeRegistry {
	r := &TypeRegistry{
		components: components,
		byKey:      make(map[TypeKey]*TypeInfo),
		byType:     make(map[reflect.Type]*TypeInfo),
	}
	Register[ecs.Parent](r, ParentKey)
	Register[ecs.Children](r, ChildrenKey)
	return r
}

// Components returns the component registry this registry feeds.
func (r *TypeRegistry) Components() *ecs.ComponentRegistry {
	return r.components
}

// Register adds T under key using JSON for its values. It panics if key is
// already bound to a different type or T is bound to a different key.
func Register[T any](r *TypeRegistry, key TypeKey) {
	RegisterFunc(r, key,
		func(v *T) ([]byte, error) {
			return json.Marshal(v)
		},
		func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	)
}

// RegisterFunc adds T under key with explicit encode and decode functions.
// The encoded form must be a valid JSON document.
func RegisterFunc[T any](r *TypeRegistry, key TypeKey, encode func(*T) ([]byte, error), decode func([]byte) (T, error)) {
	t := reflect.TypeFor[T]()
	if existing, ok := r.byKey[key]; ok && existing.Type != t {
		panic(fmt.Errorf("%w: key %q already bound to %s", ErrDuplicateKey, key, existing.Type))
	}
	if existing, ok := r.byType[t]; ok && existing.Key != key {
		panic(fmt.Errorf("%w: %s already bound to %q", ErrDuplicateKey, t, existing.Key))
	}

	ti := &TypeInfo{
		Key:  key,
		Type: t,
		encode: func(ptr any) (json.RawMessage, error) {
			v, ok := ptr.(*T)
			if !ok {
				return nil, fmt.Errorf("%w: %q expects *%s, got %T", ErrEncode, key, t, ptr)
			}
			data, err := encode(v)
			if err != nil {
				return nil, err
			}
			if !json.Valid(data) {
				return nil, fmt.Errorf("%w: %q produced invalid JSON", ErrEncode, key)
			}
			return json.RawMessage(data), nil
		},
		decode: func(data json.RawMessage) (any, error) {
			return decode(data)
		},
	}
	r.byKey[key] = ti
	r.byType[t] = ti
	ecs.RegisterComponent[T](r.components)
}

// Lookup returns the type registered under key.
func (r *TypeRegistry) Lookup(key TypeKey) (*TypeInfo, bool) {
	ti, ok := r.byKey[key]
	return ti, ok
}

// LookupType returns the registration of a Go type.
func (r *TypeRegistry) LookupType(t reflect.Type) (*TypeInfo, bool) {
	ti, ok := r.byType[t]
	return ti, ok
}

// Keys returns every registered key in ascending order.
func (r *TypeRegistry) Keys() []TypeKey {
	return slices.Sorted(maps.Keys(r.byKey))
}

// KeyOf returns the key T is registered under.
func KeyOf[T any](r *TypeRegistry) (TypeKey, bool) {
	ti, ok := r.byType[reflect.TypeFor[T]()]
	if !ok {
		return "", false
	}
	return ti.Key, true
}
