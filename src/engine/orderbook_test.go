package engine

import (
	"testing"
)

func bookOrder(ob *OrderBook, owner string, price, spend uint64) *Order {
	order := &Order{
		ID:     ob.NextID(),
		Owner:  owner,
		Price:  price,
		Spend:  spend,
		Status: StatusOpen,
	}
	ob.Insert(order)
	return order
}

func TestOrderBookPricePriority(t *testing.T) {
	ob := NewOrderBook(0)

	low := bookOrder(ob, "alice", 30, 3000)
	high := bookOrder(ob, "bob", 70, 7000)
	mid := bookOrder(ob, "carol", 50, 5000)

	if best := ob.Best(); best != high {
		t.Errorf("Expected order %d at the top of the book, got: %d", high.ID, best.ID)
	}

	ob.Remove(high)
	if best := ob.Best(); best != mid {
		t.Errorf("Expected order %d at the top of the book, got: %d", mid.ID, best.ID)
	}

	ob.Remove(mid)
	if best := ob.Best(); best != low {
		t.Errorf("Expected order %d at the top of the book, got: %d", low.ID, best.ID)
	}
}

func TestOrderBookTimePriorityAtSamePrice(t *testing.T) {
	ob := NewOrderBook(0)

	first := bookOrder(ob, "alice", 50, 5000)
	bookOrder(ob, "bob", 50, 5000)

	if best := ob.Best(); best != first {
		t.Errorf("Expected the earlier order %d first at equal price, got: %d", first.ID, best.ID)
	}

	orders := ob.OpenOrders()
	for i := 1; i < len(orders); i++ {
		if orders[i-1].ID > orders[i].ID {
			t.Errorf("Expected ascending ids at equal price, got %d before %d", orders[i-1].ID, orders[i].ID)
		}
	}
}

func TestOrderBookRetire(t *testing.T) {
	ob := NewOrderBook(0)

	order := bookOrder(ob, "alice", 50, 5000)
	ob.Retire(order)

	if ob.OpenLen() != 0 {
		t.Errorf("Expected empty open set after retire, got: %d", ob.OpenLen())
	}
	if ob.FilledLen() != 1 {
		t.Errorf("Expected 1 retired order, got: %d", ob.FilledLen())
	}
	if order.Status != StatusFilled {
		t.Errorf("Expected retired order marked filled, got: %v", order.Status)
	}
	if _, ok := ob.Get(order.ID); ok {
		t.Errorf("Expected retired order gone from the open index")
	}
}

func TestOrderBookNextID(t *testing.T) {
	ob := NewOrderBook(0)
	prev := ob.NextID()
	for i := 0; i < 5; i++ {
		id := ob.NextID()
		if id <= prev {
			t.Fatalf("Expected strictly increasing ids, got %d after %d", id, prev)
		}
		prev = id
	}
}
