package main

import (
	"math/rand"

	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

// Target points a child at the entity it follows.
type Target struct {
	Id ecs.EntityId
}

func (t *Target) MapEntities(m ecs.EntityMapper) {
	t.Id = m.MapOrReserve(t.Id)
}

// Clock counts simulated frames.
type Clock struct {
	Frame int64
}

func newTypes() *snapshot.TypeRegistry {
	types := snapshot.NewTypeRegistry(ecs.NewComponentRegistry())
	snapshot.Register[Position](types, "stress.Position")
	snapshot.Register[Velocity](types, "stress.Velocity")
	snapshot.Register[Health](types, "stress.Health")
	snapshot.Register[Target](types, "stress.Target")
	snapshot.Register[Clock](types, "stress.Clock")
	return types
}

// populate spawns n saved parents, each with children followers.
func populate(storage *ecs.Storage, n, children int) {
	for i := 0; i < n; i++ {
		parent := storage.Spawn(
			Position{X: rand.Float64() * 1000, Y: rand.Float64() * 1000},
			Velocity{X: rand.Float64() - 0.5, Y: rand.Float64() - 0.5},
			Health{Current: 100, Max: 100},
			save.Save{},
		)
		for j := 0; j < children; j++ {
			child := storage.Spawn(Position{}, Target{Id: parent}, save.Save{})
			if err := storage.SetParent(child, parent); err != nil {
				panic(err)
			}
		}
	}
}

type movement struct {
	Movers ecs.Query[struct {
		*Position
		*Velocity
	}]
}

func (m *movement) Execute(frame *ecs.UpdateFrame) {
	for e := range m.Movers.Values() {
		e.Position.X += e.Velocity.X * frame.DeltaTime
		e.Position.Y += e.Velocity.Y * frame.DeltaTime
	}
}

type follow struct {
	Followers ecs.Query[struct {
		*Position
		*Target
	}]
}

func (f *follow) Execute(frame *ecs.UpdateFrame) {
	for e := range f.Followers.Values() {
		if target := ecs.ReadComponent[Position](frame.Storage, e.Target.Id); target != nil {
			*e.Position = *target
		}
	}
}

type decay struct {
	Living ecs.Query[struct{ *Health }]
	Clock  ecs.Singleton[Clock]
}

func (d *decay) Execute(frame *ecs.UpdateFrame) {
	d.Clock.Get().Frame++
	for e := range d.Living.Values() {
		e.Health.Current--
		if e.Health.Current <= 0 {
			e.Health.Current = e.Health.Max
		}
	}
}

// autosave triggers req every n frames.
type autosave struct {
	Clock ecs.Singleton[Clock]
	every int64
	req   save.Request
}

func (a *autosave) Execute(frame *ecs.UpdateFrame) {
	if a.every > 0 && a.Clock.Get().Frame%a.every == 0 {
		save.Trigger(frame.Storage, a.req)
	}
}
