// Package coordinator applies floor state transitions. Each operation
// runs in one store transaction, derives its cascades inside that
// transaction, and publishes the resulting events only after commit.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/payments"
	"floorsync-system/internal/store"
)

// Publisher receives committed events in order.
type Publisher interface {
	PublishAll(evs []domain.Event)
}

type Options struct {
	Pricing    domain.Pricing
	Logger     *slog.Logger
	BcryptCost int
	Now        func() time.Time
}

type Coordinator struct {
	store      store.Store
	bus        Publisher
	processor  payments.Processor
	pricing    domain.Pricing
	log        *slog.Logger
	bcryptCost int
	now        func() time.Time
	seq        *sequencer
}

func New(st store.Store, bus Publisher, processor payments.Processor, opts Options) *Coordinator {
	if opts.Pricing.TaxRate.IsZero() && opts.Pricing.SplitTolerance.IsZero() {
		opts.Pricing = domain.DefaultPricing()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		store:      st,
		bus:        bus,
		processor:  processor,
		pricing:    opts.Pricing,
		log:        opts.Logger.With("component", "coordinator"),
		bcryptCost: opts.BcryptCost,
		now:        opts.Now,
		seq:        newSequencer(),
	}
}

func (c *Coordinator) Pricing() domain.Pricing { return c.pricing }

// outbox collects the events of one transition in emission order.
type outbox struct {
	events []domain.Event
}

func (o *outbox) add(topic domain.Topic, name string, payload any) {
	o.events = append(o.events, domain.Event{Topic: topic, Name: name, Payload: payload})
}

// locker enforces the entity lock hierarchy within one transaction.
type locker struct {
	tx   store.Tx
	rank int
}

func (l *locker) lock(entity store.Entity, id string) error {
	r := store.LockRank[entity]
	if r < l.rank {
		return domain.Internal(fmt.Sprintf("lock order violation: %s requested after rank %d", entity, l.rank), nil)
	}
	l.rank = r
	return l.tx.Lock(entity, id)
}

// mutate runs fn in a transaction and, once it commits, publishes the
// events fn collected. Nothing is published when fn or the commit fails.
// Batches reach the bus in commit order.
func (c *Coordinator) mutate(ctx context.Context, op string, fn func(tx store.Tx, lk *locker, out *outbox) error) ([]domain.Event, error) {
	var (
		out    outbox
		ticket uint64
	)
	err := c.store.Tx(ctx, func(tx store.Tx) error {
		out = outbox{}
		if err := fn(tx, &locker{tx: tx}, &out); err != nil {
			return err
		}
		if c.bus != nil && len(out.events) > 0 {
			ticket = c.seq.take()
		}
		return nil
	})
	if err != nil {
		if ticket != 0 {
			c.seq.skip(ticket)
		}
		if domain.KindOf(err) == domain.KindInternal {
			c.log.Error("operation failed", "op", op, "error", err)
		} else {
			c.log.Debug("operation rejected", "op", op, "error", err)
		}
		return nil, err
	}
	if ticket != 0 {
		c.seq.publish(ticket, func() { c.bus.PublishAll(out.events) })
	}
	return out.events, nil
}

// read runs fn in a transaction that takes no locks.
func (c *Coordinator) read(ctx context.Context, fn func(tx store.Tx) error) error {
	return c.store.Tx(ctx, fn)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
