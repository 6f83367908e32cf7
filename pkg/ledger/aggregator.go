package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Aggregator sums signed transaction lines of one ledger kind.
type Aggregator struct {
	kind   Kind
	reader LineReader
	signs  Classifications
}

// NewAggregator creates an Aggregator reading kind lines from reader.
// signs may be nil when the ledger has no sign exceptions.
func NewAggregator(kind Kind, reader LineReader, signs Classifications) *Aggregator {
	if signs == nil {
		signs = Classifications{}
	}
	return &Aggregator{
		kind:   kind,
		reader: reader,
		signs:  signs,
	}
}

// Kind returns the ledger kind the aggregator reads.
func (a *Aggregator) Kind() Kind {
	return a.kind
}

// ComputeBalance returns the balance of q.EntityRef, restricted to q.Scope
// when it is set. An entity with no lines has a zero balance.
func (a *Aggregator) ComputeBalance(ctx context.Context, q Query) (decimal.Decimal, error) {
	lines, err := a.reader.ReadLines(ctx, LineQuery{
		Kind:      a.kind,
		EntityRef: q.EntityRef,
		Scope:     q.Scope,
		To:        q.AsOf,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: read %s lines for %q: %w", ErrSourceUnavailable, a.kind, q.EntityRef, err)
	}

	return Sum(lines, q, a.signs), nil
}

// Sum adds up the contribution of every line matching q.
// Lines for other entities or scopes are ignored, as are cancelled lines
// and lines dated after q.AsOf.
func Sum(lines []TransactionLine, q Query, signs Classifications) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.EntityRef != q.EntityRef {
			continue
		}
		if q.Scope != "" && line.ScopePartition != q.Scope {
			continue
		}
		if !q.AsOf.IsZero() && line.Date.After(q.AsOf) {
			continue
		}
		total = total.Add(signs.Contribution(line))
	}
	return total
}
