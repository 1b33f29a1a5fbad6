package save

import (
	"reflect"

	"github.com/plus3/keepsake/ecs"
	"go.uber.org/zap"
)

// pending holds the requests triggered since the last frame.
type pending struct {
	requests []Request
}

var pendingType = reflect.TypeFor[pending]()

// Trigger queues req to be run by System at the end of the next frame.
func Trigger(storage *ecs.Storage, req Request) {
	q := ecs.NewSingleton[pending](storage).Get()
	q.requests = append(q.requests, req)
}

// System runs triggered saves from a Scheduler. Only the first request of a
// frame is run; the rest are dropped with a warning.
type System struct {
	saver *Saver
}

// NewSystem returns a system running requests through saver.
func NewSystem(saver *Saver) *System {
	return &System{saver: saver}
}

func (s *System) Execute(frame *ecs.UpdateFrame) {
	q, _ := frame.Storage.GetSingleton(pendingType).(*pending)
	if q == nil || len(q.requests) == 0 {
		return
	}

	req := q.requests[0]
	if dropped := len(q.requests) - 1; dropped > 0 {
		s.saver.logger.Warn("multiple save requests in one frame, running only the first",
			zap.Int("dropped", dropped))
	}
	clear(q.requests)
	q.requests = q.requests[:0]

	// Runs once the frame's commands are applied.
	frame.Commands.Defer(func() {
		_, _ = s.saver.Save(req)
	})
}
