// Package ledger turns the ERP's append-only signed transaction log into
// balances and stock quantities.
//
// The package never writes to the ledger. Every balance is computed from
// the lines a LineReader returns for one call.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSourceUnavailable is returned when the ledger store could not be read.
// A balance missing a contributing source is misleading, so the balance path
// never returns partial results.
var ErrSourceUnavailable = errors.New("ledger source unavailable")

// Kind selects which ledger a line belongs to.
type Kind string

const (
	KindCounterparty Kind = "counterparty"
	KindBankAccount  Kind = "bank_account"
	KindStock        Kind = "stock"
)

// Valid reports whether k is one of the known ledger kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCounterparty, KindBankAccount, KindStock:
		return true
	}
	return false
}

// Sign is the literal sign recorded on a ledger line.
type Sign int

const (
	// SignIncrease (0) adds the amount to the balance.
	SignIncrease Sign = 0
	// SignDecrease (1) subtracts the amount from the balance.
	SignDecrease Sign = 1
)

// TransactionLine is one signed record of the transaction log.
type TransactionLine struct {
	EntityRef          string
	ScopePartition     string          // warehouse or bank account id; empty when unscoped
	Amount             decimal.Decimal // non-negative magnitude
	Sign               Sign
	ClassificationCode string
	Cancelled          bool
	Date               time.Time
}

// LineQuery filters the lines read for one balance.
// Zero From/To leave the date range open on that side.
type LineQuery struct {
	Kind      Kind
	EntityRef string
	Scope     string
	From      time.Time
	To        time.Time
}

// LineReader is the read-only view of the ledger store.
type LineReader interface {
	ReadLines(ctx context.Context, q LineQuery) ([]TransactionLine, error)
}

// Query identifies a balance within one view.
type Query struct {
	EntityRef string
	Scope     string    // empty sums across all scope partitions
	AsOf      time.Time // zero includes every line
}

// Balancer computes a single balance.
type Balancer interface {
	ComputeBalance(ctx context.Context, q Query) (decimal.Decimal, error)
}
