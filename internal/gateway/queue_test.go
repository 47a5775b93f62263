package gateway

import "testing"

func TestDequeOrder(t *testing.T) {
	d := newDeque()
	a, b, retry := &pending{key: "a"}, &pending{key: "b"}, &pending{key: "retry"}

	d.PushBack(a)
	d.PushBack(b)
	d.PushFront(retry)

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	for _, want := range []string{"retry", "a", "b"} {
		p, ok := d.PopFront()
		if !ok {
			t.Fatalf("PopFront() empty, want %s", want)
		}
		if p.key != want {
			t.Errorf("PopFront() = %s, want %s", p.key, want)
		}
	}
	if _, ok := d.PopFront(); ok {
		t.Error("PopFront() on empty deque returned an item")
	}
}
