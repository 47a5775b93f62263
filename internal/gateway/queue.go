package gateway

import "container/list"

// deque holds waiting requests. Arrivals go to the back, retries to the front.
type deque struct {
	items *list.List
}

func newDeque() *deque {
	return &deque{items: list.New()}
}

func (d *deque) PushBack(p *pending) {
	d.items.PushBack(p)
}

func (d *deque) PushFront(p *pending) {
	d.items.PushFront(p)
}

func (d *deque) PopFront() (*pending, bool) {
	e := d.items.Front()
	if e == nil {
		return nil, false
	}
	d.items.Remove(e)
	return e.Value.(*pending), true
}

func (d *deque) Len() int {
	return d.items.Len()
}
