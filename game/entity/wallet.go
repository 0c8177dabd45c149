package entity

import "sync"

// Wallet is the currency behaviour. Balance mirrors the character's
// persisted gold; only the transaction pipeline mutates it, under the
// per-entity lock, after the corresponding ledger write committed.
type Wallet struct {
	mu      sync.Mutex
	balance int64
}

// NewWallet creates a Wallet holding the given balance.
func NewWallet(balance int64) *Wallet {
	return &Wallet{balance: balance}
}

// Capabilities implements Behaviour.
func (w *Wallet) Capabilities() []Capability { return []Capability{CapWallet} }

// Balance returns the current spendable amount.
func (w *Wallet) Balance() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// SetBalance replaces the balance (used when loading from the ledger).
func (w *Wallet) SetBalance(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance = v
}

// Apply adds delta (negative for a debit) and returns the new balance.
func (w *Wallet) Apply(delta int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance += delta
	return w.balance
}
