package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// PartitionEvent is an invoice as stored in one partition. CounterpartyRef
// is the partition-local numeric reference and cannot be compared across
// partitions.
type PartitionEvent struct {
	CounterpartyRef int64
	BaseDate        time.Time
	Amount          decimal.Decimal
	Reference       string
}

// Source is the read-only view of one bookkeeping partition.
type Source interface {
	// ReadEvents returns the open invoices of the partition.
	ReadEvents(ctx context.Context) ([]PartitionEvent, error)
	// Counterparties maps partition-local references to stable codes.
	Counterparties(ctx context.Context) (map[int64]string, error)
}

// RuleSource provides the full rule map.
type RuleSource interface {
	All(ctx context.Context) (Rules, error)
}

// Partition is a labelled Source.
type Partition struct {
	Label  string
	Source Source
}

// Result is a computed schedule.
type Result struct {
	AsOf     time.Time
	Policy   PastDuePolicy
	Payments []Payment
	// Omitted lists the partitions (and "rules") that could not be read.
	Omitted []string
	// Unresolved counts events whose counterparty had no code.
	Unresolved int
}

// Service reads every partition and builds the merged schedule.
type Service struct {
	partitions []Partition
	rules      RuleSource
	merger     *Merger
	logger     *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(partitions []Partition, rules RuleSource, merger *Merger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		partitions: partitions,
		rules:      rules,
		merger:     merger,
		logger:     logger,
	}
}

// Schedule builds the payment schedule as of asOf.
//
// A partition that cannot be read is skipped and listed in Result.Omitted;
// the remaining partitions still produce a schedule. An unreadable rule
// store leaves every due date unadjusted.
func (s *Service) Schedule(ctx context.Context, asOf time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{AsOf: Day(asOf), Policy: s.merger.Policy()}

	var events []Event
	for _, p := range s.partitions {
		partEvents, unresolved, err := s.readPartition(ctx, p)
		if err != nil {
			s.logger.Warn("skipping partition", "partition", p.Label, "error", err)
			result.Omitted = append(result.Omitted, p.Label)
			continue
		}
		if unresolved > 0 {
			s.logger.Warn("events without counterparty code", "partition", p.Label, "count", unresolved)
		}
		result.Unresolved += unresolved
		events = append(events, partEvents...)
	}

	rules, err := s.rules.All(ctx)
	if err != nil {
		s.logger.Warn("counterparty rules unavailable, due dates not adjusted", "error", err)
		result.Omitted = append(result.Omitted, "rules")
		rules = Rules{}
	}

	result.Payments = s.merger.BuildSchedule(events, rules, asOf)

	s.logger.Debug("schedule built",
		"as_of", result.AsOf.Format(DateLayout),
		"events", len(events),
		"payments", len(result.Payments),
		"omitted", len(result.Omitted),
	)

	return result, nil
}

func (s *Service) readPartition(ctx context.Context, p Partition) ([]Event, int, error) {
	raw, err := p.Source.ReadEvents(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s events: %w", ErrSourceUnavailable, p.Label, err)
	}

	directory, err := p.Source.Counterparties(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s counterparties: %w", ErrSourceUnavailable, p.Label, err)
	}

	events, unresolved := ResolveIdentities(p.Label, raw, directory)
	return events, unresolved, nil
}

// ResolveIdentities joins partition events with the partition's
// counterparty directory. Events whose reference is missing from the
// directory keep an empty code, so no rule applies to them, and are counted
// as unresolved.
func ResolveIdentities(label string, raw []PartitionEvent, directory map[int64]string) ([]Event, int) {
	events := make([]Event, 0, len(raw))
	unresolved := 0
	for _, pe := range raw {
		code, ok := directory[pe.CounterpartyRef]
		if !ok || code == "" {
			unresolved++
		}
		events = append(events, Event{
			CounterpartyCode: code,
			BaseDate:         pe.BaseDate,
			Amount:           pe.Amount,
			PartitionLabel:   label,
			Reference:        pe.Reference,
		})
	}
	return events, unresolved
}
