package events

import (
	"log/slog"
	"sync"

	"floorsync-system/internal/domain"
)

// mirrorPump hands events to the external Mirror on its own goroutine so
// broker latency never reaches publishers. The queue outlives each run;
// events left in it go out after the next start.
type mirrorPump struct {
	m     Mirror
	queue chan domain.Event
	log   *slog.Logger

	mu   sync.Mutex
	quit chan struct{}
	wg   sync.WaitGroup
}

func newMirrorPump(m Mirror, size int, log *slog.Logger) *mirrorPump {
	return &mirrorPump{
		m:     m,
		queue: make(chan domain.Event, size),
		log:   log.With("component", "event_mirror"),
	}
}

func (p *mirrorPump) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit != nil {
		return
	}
	quit := make(chan struct{})
	p.quit = quit
	p.wg.Add(1)
	go p.run(quit)
}

func (p *mirrorPump) run(quit <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-quit:
			return
		case ev := <-p.queue:
			if err := p.m.Mirror(ev); err != nil {
				p.log.Warn("mirror publish failed", "topic", ev.Topic, "event", ev.Name, "error", err)
			}
		}
	}
}

func (p *mirrorPump) enqueue(ev domain.Event) {
	select {
	case p.queue <- ev:
	default:
		p.log.Warn("mirror queue full, event dropped", "topic", ev.Topic, "event", ev.Name)
	}
}

// stop ends the current run and waits for it. start may be called again.
func (p *mirrorPump) stop() {
	p.mu.Lock()
	quit := p.quit
	p.quit = nil
	p.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	p.wg.Wait()
}

func (p *mirrorPump) close() {
	p.stop()
	if err := p.m.Close(); err != nil {
		p.log.Warn("mirror close failed", "error", err)
	}
}
