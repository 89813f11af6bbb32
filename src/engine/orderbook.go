package engine

import (
	"github.com/google/btree"
)

// orderItem orders open buys by price descending, then order id ascending.
// Every order in a book is a buy on the book's outcome, so a higher price is
// a higher priority and equal prices fall back to FIFO.
type orderItem struct {
	order *Order
}

func (a *orderItem) Less(than btree.Item) bool {
	b := than.(*orderItem)
	if a.order.Price != b.order.Price {
		return a.order.Price > b.order.Price
	}
	return a.order.ID < b.order.ID
}

// OrderBook holds the open orders of one (market, outcome) pair plus the
// append-only log of retired orders kept for claim enumeration.
type OrderBook struct {
	Outcome uint64

	open   *btree.BTree
	byID   map[uint64]*Order
	filled []*Order
	nextID uint64
}

func NewOrderBook(outcome uint64) *OrderBook {
	return &OrderBook{
		Outcome: outcome,
		open:    btree.New(32),
		byID:    make(map[uint64]*Order),
	}
}

// NextID hands out order ids that strictly increase within the book.
func (ob *OrderBook) NextID() uint64 {
	id := ob.nextID
	ob.nextID++
	return id
}

func (ob *OrderBook) Insert(order *Order) {
	ob.open.ReplaceOrInsert(&orderItem{order: order})
	ob.byID[order.ID] = order
}

// Best returns the highest-priority open order, or nil on an empty book.
func (ob *OrderBook) Best() *Order {
	item := ob.open.Min()
	if item == nil {
		return nil
	}
	return item.(*orderItem).order
}

func (ob *OrderBook) Get(orderID uint64) (*Order, bool) {
	order, ok := ob.byID[orderID]
	return order, ok
}

// Remove takes an order out of the open set without touching the filled log.
func (ob *OrderBook) Remove(order *Order) bool {
	if _, ok := ob.byID[order.ID]; !ok {
		return false
	}
	ob.open.Delete(&orderItem{order: order})
	delete(ob.byID, order.ID)
	return true
}

// Retire moves an order from the open set to the filled log once it can no
// longer fund a share (or was consumed entirely).
func (ob *OrderBook) Retire(order *Order) {
	ob.Remove(order)
	order.Status = StatusFilled
	ob.filled = append(ob.filled, order)
}

// AppendFilled records an order in the retired log without touching its
// status, e.g. a taker consumed in the same call that placed it or a
// cancelled order that still carries filled shares.
func (ob *OrderBook) AppendFilled(order *Order) {
	ob.filled = append(ob.filled, order)
}

func (ob *OrderBook) OpenLen() int {
	return ob.open.Len()
}

func (ob *OrderBook) FilledLen() int {
	return len(ob.filled)
}

// OpenOrders returns the open set in priority order.
func (ob *OrderBook) OpenOrders() []*Order {
	orders := make([]*Order, 0, ob.open.Len())
	ob.open.Ascend(func(item btree.Item) bool {
		orders = append(orders, item.(*orderItem).order)
		return true
	})
	return orders
}

func (ob *OrderBook) FilledOrders() []*Order {
	return ob.filled
}

// ordersOf filters a slice of orders by owner, preserving order.
func ordersOf(orders []*Order, account string) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Owner == account {
			out = append(out, o)
		}
	}
	return out
}
