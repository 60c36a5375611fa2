package mirror

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"floorsync-system/internal/domain"
)

func TestEncodeEnvelope(t *testing.T) {
	ev := domain.Event{
		Topic:   domain.KitchenTopic("r1"),
		Name:    domain.EventItemStatusChanged,
		Payload: domain.ItemStatusChanged{ItemID: "i1", Status: domain.ItemReady},
	}
	before := time.Now().UTC()
	data, err := encode(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got struct {
		Topic     string            `json:"topic"`
		Event     string            `json:"event"`
		Payload   map[string]string `json:"payload"`
		Timestamp time.Time         `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if got.Topic != "restaurant:r1:kitchen" || got.Event != domain.EventItemStatusChanged {
		t.Fatalf("envelope = %s/%s", got.Topic, got.Event)
	}
	if got.Payload["itemId"] != "i1" || got.Payload["status"] != string(domain.ItemReady) {
		t.Fatalf("payload = %v", got.Payload)
	}
	if got.Timestamp.Before(before.Add(-time.Second)) || got.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestEncodeRejectsUnencodablePayload(t *testing.T) {
	_, err := encode(domain.Event{Topic: "t", Name: "x", Payload: make(chan int)})
	if err == nil {
		t.Fatal("encode(chan) succeeded")
	}
}

func TestRedisMirrorReportsUnreachableBroker(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	m := NewRedis(rdb)
	if err := m.Mirror(domain.Event{Topic: domain.FloorTopic("r1"), Name: "table:updated"}); err == nil {
		t.Fatal("mirror to closed port succeeded")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAMQPPingWithoutConnection(t *testing.T) {
	var a AMQP
	if err := a.Ping(); err == nil {
		t.Fatal("ping without a connection succeeded")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
