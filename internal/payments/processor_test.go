package payments

import (
	"context"
	"errors"
	"testing"
)

func TestSandboxRefunds(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox("")
	intent, err := s.CreateIntent(ctx, 5000, "cust_1")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.ClientSecret == "" || intent.AmountMinor != 5000 || intent.Currency != "usd" {
		t.Fatalf("intent = %+v", intent)
	}

	part := int64(2000)
	if _, err := s.Refund(ctx, intent.ID, &part); err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	tooMuch := int64(3500)
	if _, err := s.Refund(ctx, intent.ID, &tooMuch); !errors.Is(err, ErrRefundTooHigh) {
		t.Fatalf("over-refund err = %v", err)
	}
	rest, err := s.Refund(ctx, intent.ID, nil)
	if err != nil || rest.AmountMinor != 3000 {
		t.Fatalf("full refund = %+v, %v", rest, err)
	}
	if _, err := s.Refund(ctx, "pi_missing", nil); !errors.Is(err, ErrUnknownIntent) {
		t.Fatalf("unknown intent err = %v", err)
	}
}

func TestSandboxRejectsZeroIntent(t *testing.T) {
	if _, err := NewSandbox("eur").CreateIntent(context.Background(), 0, ""); err == nil {
		t.Fatal("expected error for zero amount")
	}
}
