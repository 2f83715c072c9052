package server

import (
	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/metrics"
)

// Broker is the publishing side handed to the domain services. It counts
// every event by kind before fanning it out on the bus.
type Broker struct {
	bus     *eventbus.Bus
	metrics *metrics.Recorder
}

func NewBroker(bus *eventbus.Bus, rec *metrics.Recorder) *Broker {
	return &Broker{bus: bus, metrics: rec}
}

// Publish satisfies drawday.Emitter.
func (b *Broker) Publish(e eventbus.Event) int {
	b.metrics.EventPublished(string(e.Kind))
	return b.bus.Publish(e)
}
