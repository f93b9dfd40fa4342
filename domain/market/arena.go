package market

// arena is a slab of T addressed by stable handles. Slot 0 is reserved
// so that None stays an invalid handle. Released slots are recycled
// through a free list; a handle stays valid until released, no matter
// how the backing slice grows.
type arena[T any] struct {
	slots []T
	free  []Handle
}

func newArena[T any](capHint int) *arena[T] {
	return &arena[T]{slots: make([]T, 1, capHint+1)}
}

func (a *arena[T]) alloc() Handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		var zero T
		a.slots[h] = zero
		return h
	}
	var zero T
	a.slots = append(a.slots, zero)
	return Handle(len(a.slots) - 1)
}

func (a *arena[T]) at(h Handle) *T {
	return &a.slots[h]
}

func (a *arena[T]) release(h Handle) {
	var zero T
	a.slots[h] = zero
	a.free = append(a.free, h)
}

// inUse counts live slots.
func (a *arena[T]) inUse() int {
	return len(a.slots) - 1 - len(a.free)
}
