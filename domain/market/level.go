package market

// Level aggregates all resting orders at one price on one side.
// The queue is an intrusive doubly-linked list of order handles in
// strict arrival order, so time priority is the list order.
type Level struct {
	Price    int64
	Side     Side
	TotalQty int64
	Orders   int

	head Handle
	tail Handle
}

func (l *Level) enqueue(orders *arena[Order], h Handle) {
	o := orders.at(h)
	if l.head == None {
		l.head = h
		l.tail = h
	} else {
		orders.at(l.tail).next = h
		o.prev = l.tail
		l.tail = h
	}
	l.TotalQty += o.Qty
	l.Orders++
}

// unlink removes h wherever it sits in the queue.
func (l *Level) unlink(orders *arena[Order], h Handle) {
	o := orders.at(h)
	if o.prev != None {
		orders.at(o.prev).next = o.next
	} else {
		l.head = o.next
	}
	if o.next != None {
		orders.at(o.next).prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = None
	o.prev = None
	l.TotalQty -= o.Qty
	l.Orders--
}

// reduce lowers the aggregate after an order in the queue shrank.
func (l *Level) reduce(delta int64) {
	l.TotalQty -= delta
}

func (l *Level) empty() bool {
	return l.head == None
}

func (l *Level) view() LevelView {
	return LevelView{
		Price:    l.Price,
		Side:     l.Side,
		TotalQty: l.TotalQty,
		Orders:   l.Orders,
	}
}
