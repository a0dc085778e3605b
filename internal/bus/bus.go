package bus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/ports"
)

// Sink receives events for one topic. A Send error marks the sink dead
// and removes it; it is never surfaced to the publisher.
type Sink interface {
	Send(event domain.Event) error
}

// Subscription identifies one live sink on one topic.
type Subscription struct {
	topic string
	id    uint64
}

type topicState struct {
	sinks  map[uint64]Sink
	buffer []domain.Event
}

// Bus fans events out to the live sinks of a topic and retains a
// replay buffer per topic for late joiners. Buffer retention is
// independent of subscriber presence.
type Bus struct {
	ttl     time.Duration
	logger  *zap.Logger
	metrics ports.Metrics

	mu     sync.Mutex
	topics map[string]*topicState
	nextID uint64

	now func() time.Time
}

// New creates an event bus whose replay buffers retain events for ttl.
func New(ttl time.Duration, logger *zap.Logger, metrics ports.Metrics) *Bus {
	return &Bus{
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		topics:  make(map[string]*topicState),
		now:     time.Now,
	}
}

// Publish appends the event to the topic's replay buffer and delivers
// it to every live sink. Delivery is best-effort per sink: a failed
// send removes that sink without affecting the others. Publishing to a
// topic with zero sinks still buffers the event.
func (b *Bus) Publish(topic string, eventType domain.EventType, payload map[string]any) {
	event := domain.Event{
		Topic:     topic,
		Type:      eventType,
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	t := b.topic(topic)
	b.prune(t, event.Timestamp)
	t.buffer = append(t.buffer, event)

	// Snapshot the sink list so delivery happens outside the lock;
	// a slow or dead sink must not block concurrent subscribes.
	type entry struct {
		id   uint64
		sink Sink
	}
	live := make([]entry, 0, len(t.sinks))
	for id, s := range t.sinks {
		live = append(live, entry{id, s})
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordEventPublished(string(eventType))
	}

	var dead []uint64
	for _, e := range live {
		if err := e.sink.Send(event); err != nil {
			dead = append(dead, e.id)
		}
	}
	if len(dead) == 0 {
		return
	}

	b.mu.Lock()
	for _, id := range dead {
		delete(t.sinks, id)
	}
	b.mu.Unlock()

	b.logger.Warn("removed dead subscribers",
		zap.String("topic", topic),
		zap.Int("count", len(dead)))
}

// Subscribe registers sink on topic, first replaying every buffered
// event newer than now-ttl in original publish order. The sink is only
// marked live once replay succeeds, and the registration happens under
// the same lock as the replay snapshot, so no publish can slip between
// history and live delivery. If replay fails the sink is discarded and
// never added.
func (b *Bus) Subscribe(topic string, sink Sink) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	b.prune(t, b.now())

	for _, event := range t.buffer {
		if err := sink.Send(event); err != nil {
			b.logger.Warn("replay failed, discarding subscription",
				zap.String("topic", topic),
				zap.Error(err))
			return nil, err
		}
	}

	b.nextID++
	id := b.nextID
	t.sinks[id] = sink

	b.logger.Info("subscriber added",
		zap.String("topic", topic),
		zap.Int("replayed", len(t.buffer)),
		zap.Int("subscribers", len(t.sinks)))

	return &Subscription{topic: topic, id: id}, nil
}

// Unsubscribe removes the sink. The topic's replay buffer is kept so
// future late joiners still receive recent history.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	delete(t.sinks, sub.id)

	b.logger.Info("subscriber removed",
		zap.String("topic", sub.topic),
		zap.Int("subscribers", len(t.sinks)))
}

// Stats returns topic, subscriber and buffered-event totals.
func (b *Bus) Stats() (topics, subscribers, buffered int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, t := range b.topics {
		b.prune(t, now)
		topics++
		subscribers += len(t.sinks)
		buffered += len(t.buffer)
	}
	return topics, subscribers, buffered
}

// topic returns the state for name, creating it if needed. Caller
// holds b.mu.
func (b *Bus) topic(name string) *topicState {
	t, ok := b.topics[name]
	if !ok {
		t = &topicState{sinks: make(map[uint64]Sink)}
		b.topics[name] = t
	}
	return t
}

// prune drops buffered events older than the retention window. Caller
// holds b.mu.
func (b *Bus) prune(t *topicState, now time.Time) {
	cutoff := now.Add(-b.ttl)
	i := 0
	for i < len(t.buffer) && !t.buffer[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		t.buffer = append([]domain.Event(nil), t.buffer[i:]...)
	}
}
