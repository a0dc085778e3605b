package bus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/ports"
)

// Monitor periodically logs bus occupancy and exports it as metrics.
type Monitor struct {
	bus      *Bus
	interval time.Duration
	logger   *zap.Logger
	metrics  ports.Metrics

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewMonitor creates a bus monitor that samples every interval.
func NewMonitor(b *Bus, interval time.Duration, logger *zap.Logger, metrics ports.Metrics) *Monitor {
	return &Monitor{
		bus:      b,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		stopCh:   make(chan struct{}),
	}
}

// Start begins sampling in the background. Calling Start twice is a
// no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.run()
}

// Stop halts sampling.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	topics, subscribers, buffered := m.bus.Stats()

	m.logger.Debug("event bus status",
		zap.Int("topics", topics),
		zap.Int("subscribers", subscribers),
		zap.Int("buffered_events", buffered))

	if m.metrics != nil {
		m.metrics.SetSubscribers(subscribers)
		m.metrics.SetBufferedEvents(buffered)
	}
}
