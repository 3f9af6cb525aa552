package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: TypeMirror, Body: []byte("0xaa")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != TypeMirror || string(msg.Body) != "0xaa" {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	_ = q.Publish(ctx, Message{Type: TypeMirror})
	cancel()
	if err := q.Publish(ctx, Message{Type: TypeMirror}); err == nil {
		t.Error("expected context error on full queue")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeMirror, Body: []byte("0xaa|bb")}
	got, err := deserialize(serialize(msg))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
		t.Errorf("got = %+v, want %+v", got, msg)
	}
}
