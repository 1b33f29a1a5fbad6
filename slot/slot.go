package slot

import (
	"github.com/plus3/keepsake/load"
	"github.com/plus3/keepsake/save"
)

type sink struct {
	store *Store
	name  string
}

// Sink returns a save sink writing into slot name.
func (s *Store) Sink(name string) save.Sink {
	return sink{store: s, name: name}
}

func (k sink) Write(data []byte) error {
	return k.store.Put(k.name, data)
}

func (k sink) String() string { return "slot:" + k.name }

type source struct {
	store *Store
	name  string
}

// Source returns a load source reading slot name.
func (s *Store) Source(name string) load.Source {
	return source{store: s, name: name}
}

func (k source) Read() ([]byte, error) {
	return k.store.Get(k.name)
}

func (k source) String() string { return "slot:" + k.name }
