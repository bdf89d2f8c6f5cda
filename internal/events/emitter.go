package events

import (
	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/metrics"
)

// Sender is the slice of the hub the emitter needs.
type Sender interface {
	Broadcast(room string, msg []byte) int
}

// Emitter translates domain events into (room, payload) deliveries. It never
// touches the persistent store; persistence happens before Emit is called.
type Emitter struct {
	sender Sender
	logger *zap.SugaredLogger
}

func NewEmitter(sender Sender, logger *zap.SugaredLogger) *Emitter {
	return &Emitter{sender: sender, logger: logger}
}

// Emit routes and delivers one event. Delivery is best-effort at-most-once:
// an empty room loses the event, which is expected, not an error. An empty
// target is a caller bug and is logged and counted.
func (e *Emitter) Emit(ev Event) error {
	room, err := Route(ev.Target)
	if err != nil {
		metrics.EventsDropped.Inc()
		e.logger.Errorw("dropping event without target", "event", ev.Name)
		return err
	}
	msg, err := Marshal(ev.Name, ev.Payload)
	if err != nil {
		e.logger.Errorw("marshal event", "event", ev.Name, "err", err)
		return err
	}
	delivered := e.sender.Broadcast(room, msg)
	metrics.EventsEmitted.WithLabelValues(ev.Name).Inc()
	if delivered == 0 {
		e.logger.Debugw("event delivered to empty room", "event", ev.Name, "room", room)
	}
	return nil
}
