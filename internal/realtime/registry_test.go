package realtime

import (
	"errors"
	"testing"
	"time"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/events"
	"floorsync-system/internal/logger"
	"floorsync-system/internal/utils"
)

type chanSink chan domain.Event

func (c chanSink) Deliver(ev domain.Event) error {
	c <- ev
	return nil
}

func expect(t *testing.T, c chanSink, name string) {
	t.Helper()
	select {
	case ev := <-c:
		if ev.Name != name {
			t.Fatalf("got %s, want %s", ev.Name, name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", name)
	}
}

func expectNone(t *testing.T, c chanSink) {
	t.Helper()
	select {
	case ev := <-c:
		t.Fatalf("unexpected event %s", ev.Name)
	case <-time.After(30 * time.Millisecond):
	}
}

func setup(t *testing.T) (*Registry, *events.Bus, *utils.TokenIssuer) {
	t.Helper()
	bus := events.NewBus(events.Options{Logger: logger.Discard()})
	bus.Start()
	t.Cleanup(bus.Stop)
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	return NewRegistry(bus, issuer, logger.Discard()), bus, issuer
}

func TestConnectRejectsBadToken(t *testing.T) {
	reg, bus, _ := setup(t)
	_, err := reg.Connect("bogus", "r1", make(chanSink, 1))
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("err = %v, want authentication error", err)
	}
	if reg.Count() != 0 || bus.Subscribers() != 0 {
		t.Fatal("rejected connection left state behind")
	}
}

func TestConnectRequiresRestaurant(t *testing.T) {
	reg, _, issuer := setup(t)
	tok, _, _ := issuer.GenerateToken("e1", "a@b.c", "", "SERVER")
	if _, err := reg.Connect(tok, "", make(chanSink, 1)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestConnectRejectsOtherRestaurant(t *testing.T) {
	reg, _, issuer := setup(t)
	tok, _, _ := issuer.GenerateToken("e1", "a@b.c", "r2", "SERVER")
	if _, err := reg.Connect(tok, "r1", make(chanSink, 1)); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("err = %v, want authentication error", err)
	}
}

func TestConnectJoinsRestaurantTopic(t *testing.T) {
	reg, bus, issuer := setup(t)
	tok, _, _ := issuer.GenerateToken("e1", "a@b.c", "r1", "SERVER")
	sink := make(chanSink, 8)
	if _, err := reg.Connect(tok, "r1", sink); err != nil {
		t.Fatalf("connect: %v", err)
	}

	bus.Publish(domain.GeneralTopic("r1"), domain.EventOrderNew, nil)
	expect(t, sink, domain.EventOrderNew)

	bus.Publish(domain.KitchenTopic("r1"), domain.EventKitchenOrderNew, nil)
	bus.Publish(domain.GeneralTopic("r2"), domain.EventOrderNew, nil)
	expectNone(t, sink)
}

func TestJoinLeaveKitchen(t *testing.T) {
	reg, bus, issuer := setup(t)
	tok, _, _ := issuer.GenerateToken("e1", "a@b.c", "r1", "CHEF")
	sink := make(chanSink, 8)
	conn, err := reg.Connect(tok, "r1", sink)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := reg.Join(conn.ID, domain.ScopeKitchen); err != nil {
		t.Fatalf("join: %v", err)
	}
	bus.Publish(domain.KitchenTopic("r1"), domain.EventKitchenOrderNew, nil)
	expect(t, sink, domain.EventKitchenOrderNew)
	if got := conn.Scopes(); len(got) != 1 || got[0] != domain.ScopeKitchen {
		t.Fatalf("scopes = %v", got)
	}

	if err := reg.Leave(conn.ID, domain.ScopeKitchen); err != nil {
		t.Fatalf("leave: %v", err)
	}
	bus.Publish(domain.KitchenTopic("r1"), domain.EventKitchenOrderNew, nil)
	expectNone(t, sink)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	reg, bus, issuer := setup(t)
	tok, _, _ := issuer.GenerateToken("e1", "a@b.c", "r1", "SERVER")
	sink := make(chanSink, 8)
	conn, _ := reg.Connect(tok, "r1", sink)
	_ = reg.Join(conn.ID, domain.ScopeFloor)

	reg.Disconnect(conn.ID)
	reg.Disconnect(conn.ID)

	bus.Publish(domain.GeneralTopic("r1"), domain.EventOrderNew, nil)
	bus.Publish(domain.FloorTopic("r1"), domain.EventItemReady, nil)
	expectNone(t, sink)
	if reg.Count() != 0 {
		t.Fatalf("count = %d after disconnect", reg.Count())
	}
	if err := reg.Join(conn.ID, domain.ScopeKitchen); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("join after disconnect: %v", err)
	}
}
