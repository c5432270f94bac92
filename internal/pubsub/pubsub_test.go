package pubsub

import "testing"

func TestPublishSubscribeBasic(t *testing.T) {
	hub := NewHub()
	a := NewClientSubs(hub)
	a.Add("ch")

	n := hub.Publish("ch", []byte("hi"))
	if n != 1 {
		t.Fatalf("Publish returned %d, want 1", n)
	}
	msg, ok := a.TryRecv()
	if !ok {
		t.Fatalf("expected a message")
	}
	if msg.Channel != "ch" || string(msg.Payload) != "hi" {
		t.Fatalf("got %+v", msg)
	}
}

func TestPublishAbsentChannelReturnsZero(t *testing.T) {
	hub := NewHub()
	if n := hub.Publish("nope", []byte("x")); n != 0 {
		t.Fatalf("got %d, want 0", n)
	}
}

func TestSubscribersJoiningAfterPublishDoNotSeeIt(t *testing.T) {
	hub := NewHub()
	hub.Publish("ch", []byte("before"))
	a := NewClientSubs(hub)
	a.Add("ch")
	if _, ok := a.TryRecv(); ok {
		t.Fatalf("should not see messages published before subscribing")
	}
}

func TestUnsubscribeDecrementsReceiverCount(t *testing.T) {
	hub := NewHub()
	a := NewClientSubs(hub)
	a.Add("ch")
	tp, _ := hub.topics.Get("ch")
	if tp.receiverCount() != 1 {
		t.Fatalf("expected 1 receiver")
	}
	a.Remove("ch")
	if tp.receiverCount() != 0 {
		t.Fatalf("expected 0 receivers after unsubscribe")
	}
}

func TestRemoveAllOnClose(t *testing.T) {
	hub := NewHub()
	a := NewClientSubs(hub)
	a.Add("c1")
	a.Add("c2")
	a.RemoveAll()
	if a.Count() != 0 {
		t.Fatalf("expected 0 subscriptions after RemoveAll")
	}
}

func TestCleanupDropsEmptyTopics(t *testing.T) {
	hub := NewHub()
	a := NewClientSubs(hub)
	a.Add("ch")
	a.Remove("ch")
	hub.Cleanup()
	if _, ok := hub.topics.Get("ch"); ok {
		t.Fatalf("expected topic to be cleaned up")
	}
}

func TestMultipleSubscribersFanOut(t *testing.T) {
	hub := NewHub()
	a := NewClientSubs(hub)
	b := NewClientSubs(hub)
	a.Add("ch")
	b.Add("ch")

	n := hub.Publish("ch", []byte("hi"))
	if n != 2 {
		t.Fatalf("got %d receivers, want 2", n)
	}
	if _, ok := a.TryRecv(); !ok {
		t.Fatal("a should have received")
	}
	if _, ok := b.TryRecv(); !ok {
		t.Fatal("b should have received")
	}
}
