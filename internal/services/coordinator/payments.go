package coordinator

import (
	"context"

	"github.com/shopspring/decimal"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/payments"
	"floorsync-system/internal/store"
)

type PaymentInput struct {
	OrderID       string
	Amount        decimal.Decimal
	Method        domain.PaymentMethod
	SplitNumber   *int
	TransactionID *string
}

func payableOrder(tx store.Tx, orderID string) (models.Order, error) {
	o, err := tx.GetOrder(orderID)
	if err != nil {
		return o, err
	}
	if o.Status == domain.OrderCancelled {
		return o, domain.Conflict("ORDER_CLOSED", "order %s is cancelled", o.ID)
	}
	return o, nil
}

func (c *Coordinator) CreatePayment(ctx context.Context, in PaymentInput) (models.Payment, []domain.Event, error) {
	if in.Amount.IsNegative() {
		return models.Payment{}, nil, domain.Validation("amount cannot be negative")
	}
	var payment models.Payment
	evs, err := c.mutate(ctx, "createPayment", func(tx store.Tx, _ *locker, out *outbox) error {
		o, err := payableOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		p := models.Payment{
			OrderID:       o.ID,
			Amount:        in.Amount,
			Method:        in.Method,
			Status:        domain.PaymentPending,
			SplitNumber:   in.SplitNumber,
			TransactionID: in.TransactionID,
		}
		if err := tx.CreatePayment(&p); err != nil {
			return err
		}
		payment = p
		out.add(domain.GeneralTopic(restaurantOf(o)), domain.EventPaymentProcessing, p)
		return nil
	})
	return payment, evs, err
}

// ConfirmPayment completes a pending payment. When completed payments
// cover the order total the order is completed in the same transaction.
func (c *Coordinator) ConfirmPayment(ctx context.Context, paymentID string) (models.Payment, []domain.Event, error) {
	var payment models.Payment
	evs, err := c.mutate(ctx, "confirmPayment", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityPayment, paymentID); err != nil {
			return err
		}
		p, err := tx.GetPayment(paymentID)
		if err != nil {
			return err
		}
		next, effects, err := domain.NextPaymentStatus(p.Status, domain.PaymentCompleted, p.OrderID)
		if err != nil {
			return err
		}
		now := c.now().UTC()
		p.Status = next
		p.ProcessedAt = &now
		if err := tx.SavePayment(&p); err != nil {
			return err
		}
		payment = p

		for _, e := range effects {
			if e.Kind != domain.EffectRecomputeSettlement {
				continue
			}
			if err := c.settle(tx, lk, out, p, e.EntityID); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		c.log.Info("payment confirmed", "payment_id", payment.ID, "order_id", payment.OrderID, "amount", payment.Amount)
	}
	return payment, evs, err
}

// settle compares completed payments with the order total and completes
// the order once it is fully paid. An order that is already terminal is
// left alone, so the cascade fires at most once.
func (c *Coordinator) settle(tx store.Tx, lk *locker, out *outbox, confirmed models.Payment, orderID string) error {
	if err := lk.lock(store.EntityOrder, orderID); err != nil {
		return err
	}
	o, err := tx.GetOrder(orderID)
	if err != nil {
		return err
	}
	out.add(domain.GeneralTopic(restaurantOf(o)), domain.EventPaymentSuccess, confirmed)

	if o.Status.Terminal() {
		return nil
	}
	paid := decimal.Zero
	for _, p := range o.Payments {
		if p.Status == domain.PaymentCompleted {
			paid = paid.Add(p.Amount)
		}
	}
	total := c.totals(o).Total
	if paid.LessThan(total) {
		return nil
	}
	c.log.Info("order settled", "order_id", o.ID, "paid", paid, "total", total)
	_, err = c.transitionOrder(tx, lk, out, orderID, domain.SettleOrder, nil)
	return err
}

// RefundPayment refunds a completed payment. A nil amount refunds it in
// full. Payments captured by the card processor are refunded there first.
func (c *Coordinator) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (models.Payment, []domain.Event, error) {
	var payment models.Payment
	evs, err := c.mutate(ctx, "refundPayment", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityPayment, paymentID); err != nil {
			return err
		}
		p, err := tx.GetPayment(paymentID)
		if err != nil {
			return err
		}
		next, _, err := domain.NextPaymentStatus(p.Status, domain.PaymentRefunded, p.OrderID)
		if err != nil {
			return err
		}
		if amount != nil && (!amount.IsPositive() || amount.GreaterThan(p.Amount)) {
			return domain.Validation("refund amount must be between 0 and %s", p.Amount)
		}
		o, err := tx.GetOrder(p.OrderID)
		if err != nil {
			return err
		}

		if p.TransactionID != nil && c.processor != nil {
			var minor *int64
			if amount != nil {
				v := domain.ToMinorUnits(*amount)
				minor = &v
			}
			if _, err := c.processor.Refund(tx.Context(), *p.TransactionID, minor); err != nil {
				return domain.Conflict("REFUND_FAILED", "processor refused refund: %v", err)
			}
		}

		p.Status = next
		if err := tx.SavePayment(&p); err != nil {
			return err
		}
		payment = p
		out.add(domain.GeneralTopic(restaurantOf(o)), domain.EventPaymentRefunded, p)
		return nil
	})
	return payment, evs, err
}

// SplitBill creates one pending card payment per split. The splits must
// add up to the order total within the configured tolerance.
func (c *Coordinator) SplitBill(ctx context.Context, orderID string, splits []decimal.Decimal) ([]models.Payment, []domain.Event, error) {
	if len(splits) == 0 {
		return nil, nil, domain.Validation("at least one split is required")
	}
	for i, s := range splits {
		if s.IsNegative() {
			return nil, nil, domain.Validation("split %d cannot be negative", i+1)
		}
	}
	var created []models.Payment
	evs, err := c.mutate(ctx, "splitBill", func(tx store.Tx, lk *locker, out *outbox) error {
		if err := lk.lock(store.EntityOrder, orderID); err != nil {
			return err
		}
		o, err := payableOrder(tx, orderID)
		if err != nil {
			return err
		}
		total := c.totals(o).Total
		if !c.pricing.SplitMatches(splits, total) {
			return domain.Validation("split amounts do not match order total %s", total.StringFixed(2))
		}
		created = make([]models.Payment, 0, len(splits))
		topic := domain.GeneralTopic(restaurantOf(o))
		for i, amount := range splits {
			n := i + 1
			p := models.Payment{
				OrderID:     o.ID,
				Amount:      amount,
				Method:      domain.MethodCreditCard,
				Status:      domain.PaymentPending,
				SplitNumber: &n,
			}
			if err := tx.CreatePayment(&p); err != nil {
				return err
			}
			created = append(created, p)
			out.add(topic, domain.EventPaymentProcessing, p)
		}
		return nil
	})
	return created, evs, err
}

func (c *Coordinator) ListPayments(ctx context.Context, orderID string) ([]models.Payment, error) {
	var out []models.Payment
	err := c.read(ctx, func(tx store.Tx) error {
		if _, err := tx.GetOrder(orderID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListPayments(orderID)
		return err
	})
	return out, err
}

// CreatePaymentIntent opens a card payment with the processor for amount.
func (c *Coordinator) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, customerRef string) (payments.Intent, error) {
	if !amount.IsPositive() {
		return payments.Intent{}, domain.Validation("amount must be positive")
	}
	if c.processor == nil {
		return payments.Intent{}, domain.Internal("no payment processor configured", nil)
	}
	intent, err := c.processor.CreateIntent(ctx, domain.ToMinorUnits(amount), customerRef)
	if err != nil {
		return payments.Intent{}, domain.Internal("create payment intent", err)
	}
	return intent, nil
}
