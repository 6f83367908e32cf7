package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentBalances bounds the reads issued by Service.Balances.
const maxConcurrentBalances = 8

// Service routes balance requests to the view for each ledger kind.
type Service struct {
	views map[Kind]Balancer
}

// NewService creates a Service from one Balancer per kind.
func NewService(views map[Kind]Balancer) *Service {
	return &Service{views: views}
}

// Balance computes one balance in the view for kind.
func (s *Service) Balance(ctx context.Context, kind Kind, q Query) (decimal.Decimal, error) {
	view, ok := s.views[kind]
	if !ok {
		return decimal.Zero, fmt.Errorf("no balance view for ledger kind %q", kind)
	}
	return view.ComputeBalance(ctx, q)
}

// Balances computes the balance of every ref concurrently. Any failure
// fails the whole call; no partial map is returned.
func (s *Service) Balances(ctx context.Context, kind Kind, refs []string, scope string) (map[string]decimal.Decimal, error) {
	view, ok := s.views[kind]
	if !ok {
		return nil, fmt.Errorf("no balance view for ledger kind %q", kind)
	}

	var mu sync.Mutex
	result := make(map[string]decimal.Decimal, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBalances)
	for _, ref := range refs {
		g.Go(func() error {
			balance, err := view.ComputeBalance(ctx, Query{EntityRef: ref, Scope: scope})
			if err != nil {
				return err
			}
			mu.Lock()
			result[ref] = balance
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}
