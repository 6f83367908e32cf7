package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	events    []PartitionEvent
	directory map[int64]string
	eventsErr error
	dirErr    error
}

func (s stubSource) ReadEvents(context.Context) ([]PartitionEvent, error) {
	return s.events, s.eventsErr
}

func (s stubSource) Counterparties(context.Context) (map[int64]string, error) {
	return s.directory, s.dirErr
}

type stubRules struct {
	rules Rules
	err   error
}

func (s stubRules) All(context.Context) (Rules, error) {
	return s.rules, s.err
}

func partitionEvent(t *testing.T, ref int64, base string, amount int64) PartitionEvent {
	t.Helper()
	return PartitionEvent{CounterpartyRef: ref, BaseDate: date(t, base), Amount: decimal.NewFromInt(amount)}
}

func TestService_MergesPartitionsByCode(t *testing.T) {
	// ACME is 7 in the current period and 42 in the prior one.
	current := stubSource{
		events:    []PartitionEvent{partitionEvent(t, 7, "2026-01-10", 500)},
		directory: map[int64]string{7: "ACME", 42: "GLOBEX"},
	}
	prior := stubSource{
		events:    []PartitionEvent{partitionEvent(t, 42, "2026-01-08", 300), partitionEvent(t, 7, "2026-01-09", 50)},
		directory: map[int64]string{42: "ACME", 7: "INITECH"},
	}
	rules := stubRules{rules: Rules{
		"ACME": {CounterpartyCode: "ACME", FixedOffsetDays: 3, TargetWeekday: Weekday(time.Tuesday)},
	}}

	svc := NewService([]Partition{
		{Label: "FY2026", Source: current},
		{Label: "FY2025", Source: prior},
	}, rules, NewMerger(PastDueDrop, nil), nil)

	res, err := svc.Schedule(context.Background(), date(t, "2026-01-01"))
	require.NoError(t, err)
	assert.Empty(t, res.Omitted)
	assert.Zero(t, res.Unresolved)
	require.Len(t, res.Payments, 3)

	// INITECH has no rule: due on its invoice date.
	assert.Equal(t, "INITECH", res.Payments[0].CounterpartyCode)
	assert.Equal(t, "2026-01-09", res.Payments[0].DueDate.Format(DateLayout))

	// Both ACME invoices resolve to the same rule; 2026-01-08 +3 = Sunday → Tuesday 13th.
	assert.Equal(t, "ACME", res.Payments[1].CounterpartyCode)
	assert.Equal(t, "FY2026", res.Payments[1].PartitionLabel)
	assert.Equal(t, "2026-01-13", res.Payments[1].DueDate.Format(DateLayout))
	assert.Equal(t, "ACME", res.Payments[2].CounterpartyCode)
	assert.Equal(t, "FY2025", res.Payments[2].PartitionLabel)
	assert.Equal(t, "2026-01-13", res.Payments[2].DueDate.Format(DateLayout))
}

func TestService_SkipsUnavailablePartition(t *testing.T) {
	ok := stubSource{
		events:    []PartitionEvent{partitionEvent(t, 1, "2026-02-02", 10)},
		directory: map[int64]string{1: "ACME"},
	}
	down := stubSource{eventsErr: errors.New("no such table: invoices")}
	noDir := stubSource{
		events: []PartitionEvent{partitionEvent(t, 1, "2026-02-03", 10)},
		dirErr: errors.New("timeout"),
	}

	svc := NewService([]Partition{
		{Label: "FY2026", Source: ok},
		{Label: "FY2025", Source: down},
		{Label: "FIRM-B", Source: noDir},
	}, stubRules{}, NewMerger(PastDueDrop, nil), nil)

	res, err := svc.Schedule(context.Background(), date(t, "2026-02-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"FY2025", "FIRM-B"}, res.Omitted)
	require.Len(t, res.Payments, 1)
	assert.Equal(t, "FY2026", res.Payments[0].PartitionLabel)
}

func TestService_RulesUnavailable(t *testing.T) {
	src := stubSource{
		events:    []PartitionEvent{partitionEvent(t, 1, "2026-02-02", 10)},
		directory: map[int64]string{1: "ACME"},
	}

	svc := NewService([]Partition{{Label: "FY2026", Source: src}},
		stubRules{err: errors.New("bolt: timeout")}, NewMerger(PastDueDrop, nil), nil)

	res, err := svc.Schedule(context.Background(), date(t, "2026-02-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rules"}, res.Omitted)
	require.Len(t, res.Payments, 1)
	assert.Equal(t, "2026-02-02", res.Payments[0].DueDate.Format(DateLayout))
}

func TestService_CancelledContext(t *testing.T) {
	svc := NewService(nil, stubRules{}, NewMerger(PastDueDrop, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Schedule(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveIdentities(t *testing.T) {
	raw := []PartitionEvent{
		partitionEvent(t, 1, "2026-01-01", 1),
		partitionEvent(t, 2, "2026-01-01", 1),
		partitionEvent(t, 3, "2026-01-01", 1),
	}

	events, unresolved := ResolveIdentities("FY2026", raw, map[int64]string{1: "ACME", 3: ""})

	require.Len(t, events, 3)
	assert.Equal(t, 2, unresolved)
	assert.Equal(t, "ACME", events[0].CounterpartyCode)
	assert.Equal(t, "", events[1].CounterpartyCode)
	for _, ev := range events {
		assert.Equal(t, "FY2026", ev.PartitionLabel)
	}
}
