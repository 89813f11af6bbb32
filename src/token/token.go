// Package token provides the collateral ledger the market engine settles
// against: a fungible balance book with ERC-20 style allowances.
package token

import (
	"errors"
	"sync"
)

var (
	ErrInsufficientBalance   = errors.New("not enough balance to cover transfer")
	ErrInsufficientAllowance = errors.New("not enough allowance to cover transfer")
	ErrAllowance             = errors.New("allowance couldn't be set")
)

// Ledger is the collateral interface the engine depends on. The in-memory
// implementation below backs tests and the standalone server; a deployment
// against a real token contract supplies its own.
type Ledger interface {
	BalanceOf(account string) uint64
	Transfer(from, to string, amount uint64) error
	TransferFrom(owner, spender, to string, amount uint64) error
	SetAllowance(owner, spender string, amount uint64) error
	Allowance(owner, spender string) uint64
	Mint(account string, amount uint64)
}

type allowanceKey struct {
	owner   string
	spender string
}

// InMemory is a mutex-guarded Ledger for a single process.
type InMemory struct {
	mu         sync.Mutex
	balances   map[string]uint64
	allowances map[allowanceKey]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		balances:   make(map[string]uint64),
		allowances: make(map[allowanceKey]uint64),
	}
}

func (l *InMemory) BalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func (l *InMemory) Mint(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *InMemory) Transfer(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

func (l *InMemory) transferLocked(from, to string, amount uint64) error {
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// SetAllowance lets spender move up to amount of owner's balance. An owner
// unknown to the ledger cannot grant anything.
func (l *InMemory) SetAllowance(owner, spender string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[owner]; !ok {
		return ErrAllowance
	}
	l.allowances[allowanceKey{owner: owner, spender: spender}] = amount
	return nil
}

func (l *InMemory) Allowance(owner, spender string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[allowanceKey{owner: owner, spender: spender}]
}

// TransferFrom moves owner's funds to `to`, consuming spender's allowance.
// A spender moving its own funds needs no allowance.
func (l *InMemory) TransferFrom(owner, spender, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner != spender {
		key := allowanceKey{owner: owner, spender: spender}
		if l.allowances[key] < amount {
			return ErrInsufficientAllowance
		}
		if err := l.transferLocked(owner, to, amount); err != nil {
			return err
		}
		l.allowances[key] -= amount
		return nil
	}
	return l.transferLocked(owner, to, amount)
}
