package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/keepsake/ecs"
	"github.com/stretchr/testify/assert"
)

type Weather struct {
	Raining bool
}

func TestSingletonLifecycle(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	weather := ecs.NewSingleton(storage, Weather{Raining: true})
	assert.True(t, weather.Exists())
	ptr := weather.Get()
	assert.True(t, ptr.Raining)

	// Overwriting keeps earlier pointers valid.
	storage.AddSingleton(&Weather{Raining: false})
	assert.False(t, ptr.Raining)
	assert.Same(t, ptr, weather.Get())

	// An initializer does not clobber an existing value.
	ecs.NewSingleton(storage, Weather{Raining: true})
	assert.False(t, ptr.Raining)

	assert.True(t, storage.RemoveSingleton(reflect.TypeFor[Weather]()))
	assert.False(t, storage.RemoveSingleton(reflect.TypeFor[Weather]()))
	assert.False(t, weather.Exists())
}

func TestSingletonsOrderedByTypeName(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	storage.AddSingleton(Weather{})
	storage.AddSingleton(Gravity{Pull: 1})

	var types []reflect.Type
	for typ, value := range storage.Singletons() {
		types = append(types, typ)
		assert.Equal(t, reflect.Pointer, reflect.TypeOf(value).Kind())
	}
	assert.Equal(t, []reflect.Type{reflect.TypeFor[Gravity](), reflect.TypeFor[Weather]()}, types)
}

func TestSingletonZeroValueOnInit(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	var weather ecs.Singleton[Weather]
	assert.Nil(t, weather.Get())

	weather.Init(storage)
	assert.NotNil(t, weather.Get())
	assert.False(t, weather.Get().Raining)
}
