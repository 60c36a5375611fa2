// Package payments talks to the card processor. Amounts cross this
// boundary in minor units (cents).
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownIntent = errors.New("unknown payment intent")
	ErrRefundTooHigh = errors.New("refund exceeds captured amount")
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	AmountMinor  int64  `json:"amountMinor"`
	Currency     string `json:"currency"`
	CustomerRef  string `json:"customerRef,omitempty"`
}

type Refund struct {
	ID          string `json:"id"`
	IntentID    string `json:"intentId"`
	AmountMinor int64  `json:"amountMinor"`
}

type Processor interface {
	CreateIntent(ctx context.Context, amountMinor int64, customerRef string) (Intent, error)
	// Refund returns money for an intent. A nil amount refunds whatever
	// is still captured.
	Refund(ctx context.Context, intentID string, amountMinor *int64) (Refund, error)
}

// Sandbox is an in-memory processor for local runs and tests. It keeps
// the captured balance per intent so over-refunds are rejected.
type Sandbox struct {
	Currency string

	mu      sync.Mutex
	balance map[string]int64
}

func NewSandbox(currency string) *Sandbox {
	if currency == "" {
		currency = "usd"
	}
	return &Sandbox{Currency: currency, balance: map[string]int64{}}
}

var _ Processor = (*Sandbox)(nil)

func (s *Sandbox) CreateIntent(ctx context.Context, amountMinor int64, customerRef string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}
	if amountMinor <= 0 {
		return Intent{}, fmt.Errorf("intent amount must be positive, got %d", amountMinor)
	}
	id := "pi_" + uuid.NewString()
	s.mu.Lock()
	s.balance[id] = amountMinor
	s.mu.Unlock()
	return Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString(),
		AmountMinor:  amountMinor,
		Currency:     s.Currency,
		CustomerRef:  customerRef,
	}, nil
}

func (s *Sandbox) Refund(ctx context.Context, intentID string, amountMinor *int64) (Refund, error) {
	if err := ctx.Err(); err != nil {
		return Refund{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	left, ok := s.balance[intentID]
	if !ok {
		return Refund{}, ErrUnknownIntent
	}
	amount := left
	if amountMinor != nil {
		amount = *amountMinor
	}
	if amount <= 0 || amount > left {
		return Refund{}, ErrRefundTooHigh
	}
	s.balance[intentID] = left - amount
	return Refund{ID: "re_" + uuid.NewString(), IntentID: intentID, AmountMinor: amount}, nil
}
