package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"floorsync-system/internal/database/models"
	"floorsync-system/internal/domain"
	"floorsync-system/internal/logger"
	"floorsync-system/internal/payments"
	"floorsync-system/internal/store"
	"floorsync-system/internal/store/memstore"
)

type recorder struct {
	mu  sync.Mutex
	evs []domain.Event
}

func (r *recorder) PublishAll(evs []domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, evs...)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Name
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.evs = nil
	r.mu.Unlock()
}

type fixture struct {
	c       *Coordinator
	st      *memstore.Store
	pub     *recorder
	sandbox *payments.Sandbox
	table   models.Table
	burger  models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{st: memstore.New(), pub: &recorder{}, sandbox: payments.NewSandbox("usd")}
	f.c = New(f.st, f.pub, f.sandbox, Options{Logger: logger.Discard(), BcryptCost: bcrypt.MinCost})

	ctx := context.Background()
	var err error
	f.table, _, err = f.c.CreateTable(ctx, TableInput{RestaurantID: "r1", FloorPlanID: "fp1", Number: "T1", Capacity: 4})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	f.burger, err = f.c.CreateMenuItem(ctx, MenuItemInput{RestaurantID: "r1", Name: "Burger", Price: decimal.RequireFromString("10.00")})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	f.pub.reset()
	return f
}

func (f *fixture) order(t *testing.T, qty int) models.Order {
	t.Helper()
	o, _, err := f.c.CreateOrder(context.Background(), CreateOrderInput{
		TableID: f.table.ID,
		Items:   []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

// serve walks an order through the kitchen to READY.
func (f *fixture) serve(t *testing.T, orderID string) {
	t.Helper()
	for _, s := range []domain.OrderStatus{domain.OrderInProgress, domain.OrderReady} {
		if _, _, err := f.c.SetOrderStatus(context.Background(), orderID, s); err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
	}
}

func (f *fixture) tableStatus(t *testing.T) domain.TableStatus {
	t.Helper()
	tb, err := f.c.GetTable(context.Background(), f.table.ID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	return tb.Status
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCreateOrderSeatsTable(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, 2)

	if o.Status != domain.OrderOpen {
		t.Fatalf("status = %s, want OPEN", o.Status)
	}
	if len(o.Items) != 1 || o.Items[0].MenuItem == nil {
		t.Fatalf("items = %+v, want one item with its menu entry", o.Items)
	}
	if o.Table == nil || o.Table.Status != domain.TableOccupied {
		t.Fatalf("nested table = %+v, want OCCUPIED", o.Table)
	}
	if got := f.tableStatus(t); got != domain.TableOccupied {
		t.Fatalf("table = %s, want OCCUPIED", got)
	}
	want := []string{domain.EventOrderNew, domain.EventKitchenOrderNew, domain.EventTableStatusChanged}
	if got := f.pub.names(); !equalNames(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if got := f.pub.evs[1].Topic; got != domain.KitchenTopic("r1") {
		t.Fatalf("kitchen event topic = %s", got)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.c.CreateOrder(ctx, CreateOrderInput{TableID: f.table.ID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("no items: err = %v, want validation", err)
	}
	_, _, err = f.c.CreateOrder(ctx, CreateOrderInput{TableID: "missing", Items: []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: 1}}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing table: err = %v, want not found", err)
	}
	_, _, err = f.c.CreateOrder(ctx, CreateOrderInput{TableID: f.table.ID, Items: []OrderItemInput{{MenuItemID: "nope", Quantity: 1}}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing menu item: err = %v, want not found", err)
	}
}

func TestFailedOperationPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	if _, err := f.c.UpdateMenuItem(ctx, f.burger.ID, MenuItemUpdate{IsAvailable: &off}); err != nil {
		t.Fatalf("update menu item: %v", err)
	}

	_, evs, err := f.c.CreateOrder(ctx, CreateOrderInput{
		TableID: f.table.ID,
		Items:   []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(evs) != 0 || len(f.pub.names()) != 0 {
		t.Fatalf("published %v after a failed operation", f.pub.names())
	}
	if got := f.tableStatus(t); got != domain.TableAvailable {
		t.Fatalf("table = %s, want AVAILABLE", got)
	}
}

func TestCancelOrderReleasesTable(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, 1)
	f.pub.reset()

	got, _, err := f.c.CancelOrder(context.Background(), o.ID, "customer left")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.OrderCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
	if got.Notes == nil || !strings.HasSuffix(*got.Notes, "\nCancellation reason: customer left") {
		t.Fatalf("notes = %v", got.Notes)
	}
	if s := f.tableStatus(t); s != domain.TableDirty {
		t.Fatalf("table = %s, want DIRTY", s)
	}
	want := []string{domain.EventOrderUpdated, domain.EventKitchenOrderUpdate, domain.EventTableStatusChanged}
	if names := f.pub.names(); !equalNames(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}

	_, _, err = f.c.SetOrderStatus(context.Background(), o.ID, domain.OrderInProgress)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("transition from CANCELLED: err = %v, want invalid transition", err)
	}
}

func TestTableStaysOccupiedWhileAnotherOrderIsActive(t *testing.T) {
	f := newFixture(t)
	first := f.order(t, 1)
	f.order(t, 1)

	f.serve(t, first.ID)
	if _, _, err := f.c.CompleteOrder(context.Background(), first.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s := f.tableStatus(t); s != domain.TableOccupied {
		t.Fatalf("table = %s, want OCCUPIED", s)
	}
}

// gatedPublisher blocks its first batch until release is closed.
type gatedPublisher struct {
	recorder
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPublisher) PublishAll(evs []domain.Event) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	g.recorder.PublishAll(evs)
}

func (g *gatedPublisher) orderStatuses() []domain.OrderStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.OrderStatus
	for _, ev := range g.evs {
		if ev.Name == domain.EventOrderUpdated {
			out = append(out, ev.Payload.(models.Order).Status)
		}
	}
	return out
}

func TestEventsFollowCommitOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 1)
	gate := &gatedPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	f.c.bus = gate

	firstDone := make(chan error, 1)
	go func() {
		_, _, err := f.c.SetOrderStatus(ctx, o.ID, domain.OrderInProgress)
		firstDone <- err
	}()
	<-gate.entered

	secondDone := make(chan error, 1)
	go func() {
		_, _, err := f.c.SetOrderStatus(ctx, o.ID, domain.OrderReady)
		secondDone <- err
	}()

	// Wait until the second transition has committed behind the held batch.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := f.c.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if got.Status == domain.OrderReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("second transition never committed, status = %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case err := <-secondDone:
		t.Fatalf("second transition published ahead of the first (err = %v)", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(gate.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if err := <-secondDone; err != nil {
		t.Fatalf("second transition: %v", err)
	}
	want := []domain.OrderStatus{domain.OrderInProgress, domain.OrderReady}
	got := gate.orderStatuses()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("published statuses = %v, want %v", got, want)
	}
}

func TestSequencerSkipsAbandonedTickets(t *testing.T) {
	s := newSequencer()
	a, b, c := s.take(), s.take(), s.take()
	var got []uint64
	done := make(chan struct{})
	go func() {
		s.publish(c, func() { got = append(got, c) })
		close(done)
	}()
	s.skip(b)
	s.publish(a, func() { got = append(got, a) })
	<-done
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("published = %v, want [%d %d]", got, a, c)
	}
}

func TestCompleteOrderNeedsReady(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, 1)

	_, _, err := f.c.CompleteOrder(context.Background(), o.ID)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("complete OPEN order: err = %v, want invalid transition", err)
	}
	if s := f.tableStatus(t); s != domain.TableOccupied {
		t.Fatalf("table = %s, want OCCUPIED", s)
	}
	f.serve(t, o.ID)
	got, _, err := f.c.CompleteOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("complete READY order: %v", err)
	}
	if got.Status != domain.OrderCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}

func TestSetTableStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.c.SetTableStatus(ctx, f.table.ID, domain.TableOccupied)
	if !errors.Is(err, domain.ErrTableInUse) {
		t.Fatalf("manual OCCUPIED: err = %v, want TABLE_IN_USE", err)
	}

	o := f.order(t, 1)
	_, _, err = f.c.SetTableStatus(ctx, f.table.ID, domain.TableCleaning)
	if !errors.Is(err, domain.ErrTableInUse) {
		t.Fatalf("active order: err = %v, want TABLE_IN_USE", err)
	}

	f.serve(t, o.ID)
	if _, _, err := f.c.CompleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	for _, s := range []domain.TableStatus{domain.TableCleaning, domain.TableAvailable, domain.TableReserved} {
		tb, _, err := f.c.SetTableStatus(ctx, f.table.ID, s)
		if err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
		if tb.Status != s {
			t.Fatalf("status = %s, want %s", tb.Status, s)
		}
	}
}

func TestItemReadyNotifiesFloor(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, 1)
	itemID := o.Items[0].ID
	ctx := context.Background()

	if _, _, err := f.c.SetOrderItemStatus(ctx, itemID, domain.ItemReady); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("skip to READY: err = %v, want invalid transition", err)
	}
	if _, _, err := f.c.SetOrderItemStatus(ctx, itemID, domain.ItemPreparing); err != nil {
		t.Fatalf("PREPARING: %v", err)
	}
	_, evs, err := f.c.SetOrderItemStatus(ctx, itemID, domain.ItemReady)
	if err != nil {
		t.Fatalf("READY: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("events = %d, want 3", len(evs))
	}
	if evs[2].Name != domain.EventItemReady || evs[2].Topic != domain.FloorTopic("r1") {
		t.Fatalf("last event = %s on %s, want floor ready", evs[2].Name, evs[2].Topic)
	}
	ready := evs[2].Payload.(domain.ItemReadyNotice)
	if ready.TableID != f.table.ID {
		t.Fatalf("ready table = %s, want %s", ready.TableID, f.table.ID)
	}
}

func TestOrderTotal(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, 2)

	tot, err := f.c.GetOrderTotal(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if tot.Subtotal.StringFixed(2) != "20.00" || tot.Tax.StringFixed(2) != "1.60" || tot.Total.StringFixed(2) != "21.60" {
		t.Fatalf("totals = %+v", tot)
	}
	if tot.ItemCount != 2 {
		t.Fatalf("itemCount = %d, want 2", tot.ItemCount)
	}
}

func TestConfirmPaymentSettlesOrderOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 2)

	first, _, err := f.c.CreatePayment(ctx, PaymentInput{OrderID: o.ID, Amount: decimal.RequireFromString("10.00"), Method: domain.MethodCash})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	second, _, err := f.c.CreatePayment(ctx, PaymentInput{OrderID: o.ID, Amount: decimal.RequireFromString("11.60"), Method: domain.MethodCash})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	if _, _, err := f.c.ConfirmPayment(ctx, first.ID); err != nil {
		t.Fatalf("confirm first: %v", err)
	}
	got, _ := f.c.GetOrder(ctx, o.ID)
	if got.Status != domain.OrderOpen {
		t.Fatalf("partly paid order = %s, want OPEN", got.Status)
	}

	f.pub.reset()
	if _, _, err := f.c.ConfirmPayment(ctx, second.ID); err != nil {
		t.Fatalf("confirm second: %v", err)
	}
	got, _ = f.c.GetOrder(ctx, o.ID)
	if got.Status != domain.OrderCompleted {
		t.Fatalf("paid order = %s, want COMPLETED", got.Status)
	}
	if s := f.tableStatus(t); s != domain.TableDirty {
		t.Fatalf("table = %s, want DIRTY", s)
	}
	want := []string{domain.EventPaymentSuccess, domain.EventOrderUpdated, domain.EventKitchenOrderUpdate, domain.EventTableStatusChanged}
	if names := f.pub.names(); !equalNames(names, want) {
		t.Fatalf("events = %v, want %v", names, want)
	}

	if _, _, err := f.c.ConfirmPayment(ctx, second.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("reconfirm: err = %v, want invalid transition", err)
	}
}

func TestConcurrentConfirmationsCompleteOrderOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 2)

	var ids []string
	for i := 0; i < 4; i++ {
		p, _, err := f.c.CreatePayment(ctx, PaymentInput{OrderID: o.ID, Amount: decimal.RequireFromString("21.60"), Method: domain.MethodCash})
		if err != nil {
			t.Fatalf("payment: %v", err)
		}
		ids = append(ids, p.ID)
	}
	f.pub.reset()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, _, err := f.c.ConfirmPayment(ctx, id); err != nil {
				t.Errorf("confirm: %v", err)
			}
		}(id)
	}
	wg.Wait()

	completed := 0
	for _, n := range f.pub.names() {
		if n == domain.EventOrderUpdated {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("order:updated published %d times, want 1", completed)
	}
}

func TestPaymentOnCancelledOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 1)
	if _, _, err := f.c.CancelOrder(ctx, o.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, _, err := f.c.CreatePayment(ctx, PaymentInput{OrderID: o.ID, Amount: decimal.NewFromInt(5), Method: domain.MethodCash})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSplitBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 2)

	bad := []decimal.Decimal{decimal.RequireFromString("10.00"), decimal.RequireFromString("10.00")}
	if _, _, err := f.c.SplitBill(ctx, o.ID, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("mismatched split: err = %v, want validation", err)
	}
	if ps, _ := f.c.ListPayments(ctx, o.ID); len(ps) != 0 {
		t.Fatalf("payments after rejected split = %d, want 0", len(ps))
	}

	splits := []decimal.Decimal{decimal.RequireFromString("7.20"), decimal.RequireFromString("7.20"), decimal.RequireFromString("7.21")}
	created, evs, err := f.c.SplitBill(ctx, o.ID, splits)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(created) != 3 || len(evs) != 3 {
		t.Fatalf("created %d payments and %d events, want 3 and 3", len(created), len(evs))
	}
	for i, p := range created {
		if p.SplitNumber == nil || *p.SplitNumber != i+1 {
			t.Fatalf("payment %d splitNumber = %v", i, p.SplitNumber)
		}
		if p.Status != domain.PaymentPending || p.Method != domain.MethodCreditCard {
			t.Fatalf("payment %d = %s/%s", i, p.Status, p.Method)
		}
	}

	listed, err := f.c.ListPayments(ctx, o.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(listed) != 3 || *listed[0].SplitNumber != 3 || *listed[2].SplitNumber != 1 {
		t.Fatalf("listed payments not newest first: %v", listed)
	}
	got, _ := f.c.GetOrder(ctx, o.ID)
	if *got.Payments[0].SplitNumber != 1 {
		t.Fatalf("order payments[0] splitNumber = %d, want 1", *got.Payments[0].SplitNumber)
	}
}

func TestRefundThroughProcessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, 1)

	intent, err := f.c.CreatePaymentIntent(ctx, decimal.RequireFromString("10.80"), "cust-1")
	if err != nil {
		t.Fatalf("intent: %v", err)
	}
	if intent.AmountMinor != 1080 {
		t.Fatalf("intent amount = %d, want 1080", intent.AmountMinor)
	}
	p, _, err := f.c.CreatePayment(ctx, PaymentInput{
		OrderID:       o.ID,
		Amount:        decimal.RequireFromString("10.80"),
		Method:        domain.MethodCreditCard,
		TransactionID: &intent.ID,
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	if _, _, err := f.c.RefundPayment(ctx, p.ID, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("refund pending: err = %v, want invalid transition", err)
	}
	if _, _, err := f.c.ConfirmPayment(ctx, p.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	tooMuch := decimal.RequireFromString("20")
	if _, _, err := f.c.RefundPayment(ctx, p.ID, &tooMuch); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("over-refund: err = %v, want validation", err)
	}
	part := decimal.RequireFromString("5.00")
	got, evs, err := f.c.RefundPayment(ctx, p.ID, &part)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got.Status != domain.PaymentRefunded {
		t.Fatalf("status = %s, want REFUNDED", got.Status)
	}
	if len(evs) != 1 || evs[0].Name != domain.EventPaymentRefunded {
		t.Fatalf("events = %v", evs)
	}
}

func TestAdjustStockLedgerAndAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, evs, err := f.c.CreateInventoryItem(ctx, InventoryItemInput{
		RestaurantID: "r1",
		Name:         "Buns",
		Unit:         "pcs",
		CurrentStock: decimal.NewFromInt(10),
		MinStock:     decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("alert on healthy stock: %v", evs)
	}

	steps := []struct {
		delta     int64
		wantStock string
		wantAlert bool
	}{
		{-6, "4", true},
		{-1, "3", true},
		{20, "23", false},
		{-30, "-7", true},
	}
	for _, s := range steps {
		got, evs, err := f.c.AdjustStock(ctx, item.ID, decimal.NewFromInt(s.delta), nil)
		if err != nil {
			t.Fatalf("adjust %d: %v", s.delta, err)
		}
		if got.CurrentStock.String() != s.wantStock {
			t.Fatalf("adjust %d: stock = %s, want %s", s.delta, got.CurrentStock, s.wantStock)
		}
		alerted := len(evs) == 1 && evs[0].Name == domain.EventInventoryAlert
		if alerted != s.wantAlert {
			t.Fatalf("adjust %d: alert = %v, want %v", s.delta, alerted, s.wantAlert)
		}
	}
	alert := f.pub.evs[len(f.pub.evs)-1].Payload.(domain.InventoryAlert)
	if alert.Message != "Low stock alert: Buns is running low (-7 pcs remaining)" {
		t.Fatalf("message = %q", alert.Message)
	}

	ledger, err := f.c.ListInventoryTransactions(ctx, item.ID, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(ledger) != len(steps) {
		t.Fatalf("ledger entries = %d, want %d", len(ledger), len(steps))
	}
	if ledger[0].Type != domain.TransactionUsage || !ledger[0].Quantity.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("newest entry = %s %s", ledger[0].Type, ledger[0].Quantity)
	}
	if ledger[1].Type != domain.TransactionRestock {
		t.Fatalf("restock entry type = %s", ledger[1].Type)
	}

	low, _ := f.c.ListLowStock(ctx, "r1")
	if len(low) != 1 || low[0].ID != item.ID {
		t.Fatalf("low stock = %v", low)
	}
}

func TestConcurrentAdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, _, err := f.c.CreateInventoryItem(ctx, InventoryItemInput{
		RestaurantID: "r1", Name: "Oil", Unit: "l",
		CurrentStock: decimal.NewFromInt(100), MinStock: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.c.AdjustStock(ctx, item.ID, decimal.NewFromInt(-1), nil); err != nil {
				t.Errorf("adjust: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := f.c.GetInventoryItem(ctx, item.ID)
	if !got.CurrentStock.Equal(decimal.NewFromInt(100 - workers)) {
		t.Fatalf("stock = %s, want %d", got.CurrentStock, 100-workers)
	}
	ledger, _ := f.c.ListInventoryTransactions(ctx, item.ID, 100)
	if len(ledger) != workers {
		t.Fatalf("ledger entries = %d, want %d", len(ledger), workers)
	}
}

func newEmployee(t *testing.T, f *fixture, email string) models.Employee {
	t.Helper()
	e, err := f.c.CreateEmployee(context.Background(), EmployeeInput{
		RestaurantID: "r1",
		Email:        email,
		Password:     "correct-horse",
		FirstName:    "Sam",
		LastName:     "Lee",
		Role:         domain.RoleServer,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return e
}

func TestEmployeeAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := newEmployee(t, f, "Sam@Example.com")

	if e.Email != "sam@example.com" {
		t.Fatalf("email = %s, want lowercased", e.Email)
	}
	if _, err := f.c.CreateEmployee(ctx, EmployeeInput{
		RestaurantID: "r1", Email: "sam@example.com", Password: "another-pass",
		FirstName: "Other", LastName: "Person", Role: domain.RoleChef,
	}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("duplicate email: err = %v, want EMAIL_TAKEN", err)
	}

	if _, err := f.c.Authenticate(ctx, "sam@example.com", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.c.Authenticate(ctx, "sam@example.com", "wrong"); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("bad password: err = %v, want authentication", err)
	}

	if _, err := f.c.DeactivateEmployee(ctx, e.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.c.Authenticate(ctx, "sam@example.com", "correct-horse"); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("inactive login: err = %v, want authentication", err)
	}
	if _, _, err := f.c.ClockIn(ctx, e.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("inactive clock-in: err = %v, want conflict", err)
	}
}

func TestConcurrentClockIn(t *testing.T) {
	f := newFixture(t)
	e := newEmployee(t, f, "sam@example.com")

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.c.ClockIn(context.Background(), e.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrShiftOpen):
				conflicts++
			default:
				t.Errorf("clock in: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != callers-1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and %d", ok, conflicts, callers-1)
	}
	active, _ := f.c.ListActiveShifts(context.Background(), "r1")
	if len(active) != 1 || active[0].Employee == nil {
		t.Fatalf("active shifts = %+v", active)
	}
}

func TestClockOutComputesHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := newEmployee(t, f, "sam@example.com")

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.c.now = func() time.Time { return clock }

	if _, _, err := f.c.ClockOut(ctx, e.ID); !errors.Is(err, domain.ErrNoActiveShift) {
		t.Fatalf("clock out without shift: err = %v, want NO_ACTIVE_SHIFT", err)
	}
	if _, _, err := f.c.ClockIn(ctx, e.ID); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	clock = clock.Add(7*time.Hour + 30*time.Minute)
	s, evs, err := f.c.ClockOut(ctx, e.ID)
	if err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if !s.HoursWorked.Valid || s.HoursWorked.Decimal.String() != "7.5" {
		t.Fatalf("hoursWorked = %v, want 7.5", s.HoursWorked)
	}
	ev := evs[0].Payload.(domain.EmployeeStatusChanged)
	if ev.ClockedIn || ev.ShiftID != s.ID {
		t.Fatalf("event = %+v", ev)
	}

	from := clock.Add(-24 * time.Hour)
	shifts, err := f.c.ListShifts(ctx, e.ID, &from, nil)
	if err != nil {
		t.Fatalf("list shifts: %v", err)
	}
	if len(shifts) != 1 || shifts[0].Open() {
		t.Fatalf("shifts = %+v", shifts)
	}
}

func TestLockOrderViolation(t *testing.T) {
	st := memstore.New()
	err := st.Tx(context.Background(), func(tx store.Tx) error {
		tb := models.Table{RestaurantID: "r1", FloorPlanID: "fp", Number: "1", Capacity: 2, MinCapacity: 1}
		if err := tx.CreateTable(&tb); err != nil {
			return err
		}
		lk := &locker{tx: tx}
		if err := lk.lock(store.EntityTable, tb.ID); err != nil {
			return err
		}
		return lk.lock(store.EntityPayment, "p1")
	})
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("err = %v, want internal lock-order error", err)
	}
}
