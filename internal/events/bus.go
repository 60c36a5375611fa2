// Package events is the in-process tenant event bus. Every subscriber
// owns a bounded mailbox drained by its own goroutine, so publishing
// never waits on a slow connection.
package events

import (
	"errors"
	"log/slog"
	"sync"

	"floorsync-system/internal/domain"
)

const DefaultMailboxSize = 256

var (
	ErrNotRunning        = errors.New("event bus is not running")
	ErrUnknownSubscriber = errors.New("unknown subscriber")
)

// Sink receives events for one subscriber. Deliver is only ever called
// from that subscriber's goroutine.
type Sink interface {
	Deliver(ev domain.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev domain.Event) error

func (f SinkFunc) Deliver(ev domain.Event) error { return f(ev) }

// Mirror forwards published events to an external broker.
type Mirror interface {
	Mirror(ev domain.Event) error
	Close() error
}

type subscriber struct {
	id      string
	sink    Sink
	mailbox chan domain.Event
	done    chan struct{}
	topics  map[domain.Topic]struct{}
}

// topic serializes publishers so each subscriber sees one topic's
// events in publish order.
type topic struct {
	mu      sync.Mutex
	members map[string]*subscriber
}

type Options struct {
	MailboxSize int
	Mirror      Mirror
	Logger      *slog.Logger
}

type Bus struct {
	mu          sync.RWMutex
	running     bool
	closed      bool
	subscribers map[string]*subscriber
	topics      map[domain.Topic]*topic

	mailboxSize int
	mirror      *mirrorPump
	log         *slog.Logger
	wg          sync.WaitGroup
}

func NewBus(opts Options) *Bus {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultMailboxSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	b := &Bus{
		subscribers: map[string]*subscriber{},
		topics:      map[domain.Topic]*topic{},
		mailboxSize: opts.MailboxSize,
		log:         opts.Logger.With("component", "event_bus"),
	}
	if opts.Mirror != nil {
		b.mirror = newMirrorPump(opts.Mirror, opts.MailboxSize, b.log)
	}
	return b
}

func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running || b.closed {
		return
	}
	b.running = true
	if b.mirror != nil {
		b.mirror.start()
	}
	b.log.Info("event bus started", "mailbox_size", b.mailboxSize)
}

// Stop detaches every subscriber and waits for their goroutines to exit.
// Publishing after Stop is a no-op. The bus may be started again; the
// mirror stays open until Close.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	for id, s := range b.subscribers {
		b.removeLocked(id, s)
	}
	b.mu.Unlock()

	b.wg.Wait()
	if b.mirror != nil {
		b.mirror.stop()
	}
	b.log.Info("event bus stopped")
}

// Close stops the bus for good and closes the mirror.
func (b *Bus) Close() {
	b.Stop()
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	if b.mirror != nil {
		b.mirror.close()
	}
}

// Attach registers a subscriber and starts its delivery goroutine.
func (b *Bus) Attach(id string, sink Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return ErrNotRunning
	}
	if old, ok := b.subscribers[id]; ok {
		b.removeLocked(id, old)
	}
	s := &subscriber{
		id:      id,
		sink:    sink,
		mailbox: make(chan domain.Event, b.mailboxSize),
		done:    make(chan struct{}),
		topics:  map[domain.Topic]struct{}{},
	}
	b.subscribers[id] = s
	b.wg.Add(1)
	go b.drain(s)
	return nil
}

// Detach drops every membership of the subscriber. Nothing is delivered
// to it afterwards, including events already in its mailbox.
func (b *Bus) Detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subscribers[id]; ok {
		b.removeLocked(id, s)
	}
}

func (b *Bus) removeLocked(id string, s *subscriber) {
	for name := range s.topics {
		if t, ok := b.topics[name]; ok {
			t.mu.Lock()
			delete(t.members, id)
			empty := len(t.members) == 0
			t.mu.Unlock()
			if empty {
				delete(b.topics, name)
			}
		}
	}
	delete(b.subscribers, id)
	close(s.done)
}

func (b *Bus) Subscribe(id string, name domain.Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscribers[id]
	if !ok {
		return ErrUnknownSubscriber
	}
	t, ok := b.topics[name]
	if !ok {
		t = &topic{members: map[string]*subscriber{}}
		b.topics[name] = t
	}
	t.mu.Lock()
	t.members[id] = s
	t.mu.Unlock()
	s.topics[name] = struct{}{}
	return nil
}

func (b *Bus) Unsubscribe(id string, name domain.Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.subscribers[id]
	if !ok {
		return ErrUnknownSubscriber
	}
	delete(s.topics, name)
	if t, ok := b.topics[name]; ok {
		t.mu.Lock()
		delete(t.members, id)
		empty := len(t.members) == 0
		t.mu.Unlock()
		if empty {
			delete(b.topics, name)
		}
	}
	return nil
}

// Publish enqueues the event for every current member of the topic.
// A full mailbox drops the event for that member only.
func (b *Bus) Publish(name domain.Topic, event string, payload any) {
	ev := domain.Event{Topic: name, Name: event, Payload: payload}

	b.mu.RLock()
	if !b.running {
		b.mu.RUnlock()
		b.log.Debug("publish on stopped bus dropped", "topic", name, "event", event)
		return
	}
	t := b.topics[name]
	if t != nil {
		t.mu.Lock()
		for _, s := range t.members {
			select {
			case s.mailbox <- ev:
			default:
				b.log.Warn("subscriber mailbox full, event dropped",
					"subscriber", s.id, "topic", name, "event", event)
			}
		}
		t.mu.Unlock()
	}
	mirror := b.mirror
	b.mu.RUnlock()

	if mirror != nil {
		mirror.enqueue(ev)
	}
}

// PublishAll publishes events in slice order.
func (b *Bus) PublishAll(evs []domain.Event) {
	for _, ev := range evs {
		b.Publish(ev.Topic, ev.Name, ev.Payload)
	}
}

func (b *Bus) drain(s *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			if err := s.sink.Deliver(ev); err != nil {
				b.log.Debug("delivery failed", "subscriber", s.id, "event", ev.Name, "error", err)
			}
		}
	}
}

// Subscribers returns the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
