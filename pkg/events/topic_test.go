package events

import "testing"

// TestTopic tests delivery order and unsubscribe.
func TestTopic(t *testing.T) {
	var topic Topic[int]
	var got []int

	unsubA := topic.Subscribe(func(v int) { got = append(got, v) })
	topic.Subscribe(func(v int) { got = append(got, v*10) })

	topic.Publish(1)
	if len(got) != 2 || got[0] != 1 || got[1] != 10 {
		t.Fatalf("unexpected deliveries %v", got)
	}

	unsubA()
	unsubA()
	if topic.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", topic.Len())
	}

	got = nil
	topic.Publish(2)
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("unexpected deliveries after unsubscribe %v", got)
	}
}

// TestUnsubscribeDuringPublish tests a subscriber removing itself mid-delivery.
func TestUnsubscribeDuringPublish(t *testing.T) {
	var topic Topic[string]
	calls := 0

	var unsub func()
	unsub = topic.Subscribe(func(string) {
		calls++
		unsub()
	})
	topic.Subscribe(func(string) { calls++ })

	topic.Publish("a")
	topic.Publish("b")
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
