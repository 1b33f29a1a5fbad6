package load

import (
	"reflect"

	"github.com/plus3/keepsake/ecs"
	"go.uber.org/zap"
)

type pending struct {
	requests []Request
}

var pendingType = reflect.TypeFor[pending]()

// Trigger queues req to be run by System at the end of the next frame.
func Trigger(storage *ecs.Storage, req Request) {
	q := ecs.NewSingleton[pending](storage).Get()
	q.requests = append(q.requests, req)
}

// System runs triggered loads from a Scheduler. Only the first request of a
// frame is run; the rest are dropped with a warning.
type System struct {
	loader *Loader
}

// NewSystem returns a system running requests through loader.
func NewSystem(loader *Loader) *System {
	return &System{loader: loader}
}

func (s *System) Execute(frame *ecs.UpdateFrame) {
	q, _ := frame.Storage.GetSingleton(pendingType).(*pending)
	if q == nil || len(q.requests) == 0 {
		return
	}

	req := q.requests[0]
	if dropped := len(q.requests) - 1; dropped > 0 {
		s.loader.logger.Warn("multiple load requests in one frame, running only the first",
			zap.Int("dropped", dropped))
	}
	clear(q.requests)
	q.requests = q.requests[:0]

	frame.Commands.Defer(func() {
		_, _ = s.loader.Load(req)
	})
}
