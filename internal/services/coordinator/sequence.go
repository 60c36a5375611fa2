package coordinator

import "sync"

// sequencer releases committed event batches in the order their
// transactions took a ticket. A ticket is taken while the transaction
// still holds its row locks, so two transitions on one entity always
// publish in commit order.
type sequencer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	issued  uint64
	turn    uint64
	skipped map[uint64]bool
}

func newSequencer() *sequencer {
	s := &sequencer{turn: 1, skipped: map[uint64]bool{}}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *sequencer) take() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// publish waits for every earlier ticket, then runs fn.
func (s *sequencer) publish(ticket uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.turn != ticket {
		s.cond.Wait()
	}
	fn()
	s.advanceLocked()
}

// skip gives up a ticket whose transaction did not commit.
func (s *sequencer) skip(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn != ticket {
		s.skipped[ticket] = true
		return
	}
	s.advanceLocked()
}

func (s *sequencer) advanceLocked() {
	s.turn++
	for s.skipped[s.turn] {
		delete(s.skipped, s.turn)
		s.turn++
	}
	s.cond.Broadcast()
}
