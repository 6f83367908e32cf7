package schedule

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a dated invoice from one partition, already resolved to its
// counterparty's stable code.
type Event struct {
	CounterpartyCode string
	BaseDate         time.Time
	Amount           decimal.Decimal
	PartitionLabel   string
	Reference        string
}

// Payment is an Event with its computed due date.
type Payment struct {
	CounterpartyCode string
	BaseDate         time.Time
	Amount           decimal.Decimal
	PartitionLabel   string
	Reference        string
	DueDate          time.Time
	Overdue          bool
}

// PastDuePolicy decides what happens to payments due before the as-of date.
type PastDuePolicy int

const (
	// PastDueDrop removes past-due payments from the schedule.
	PastDueDrop PastDuePolicy = iota
	// PastDueFlag keeps past-due payments and marks them Overdue.
	PastDueFlag
)

func (p PastDuePolicy) String() string {
	switch p {
	case PastDueDrop:
		return "drop"
	case PastDueFlag:
		return "flag"
	}
	return fmt.Sprintf("PastDuePolicy(%d)", int(p))
}

// ParsePastDuePolicy parses "drop" or "flag". Empty means drop.
func ParsePastDuePolicy(s string) (PastDuePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return PastDueDrop, nil
	case "flag":
		return PastDueFlag, nil
	}
	return 0, fmt.Errorf("unknown past-due policy %q (want drop or flag)", s)
}

// Merger turns events into an ordered schedule.
type Merger struct {
	policy PastDuePolicy
	logger *slog.Logger
}

// NewMerger creates a Merger. A nil logger uses slog.Default().
func NewMerger(policy PastDuePolicy, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{policy: policy, logger: logger}
}

// Policy returns the merger's past-due policy.
func (m *Merger) Policy() PastDuePolicy {
	return m.policy
}

// BuildSchedule computes the due date of every event and returns the
// payments ordered by due date, soonest first. Ties keep input order.
//
// Rules are matched by exact counterparty code. Events sharing a code are
// never merged, whichever partition they come from.
func (m *Merger) BuildSchedule(events []Event, rules Rules, asOf time.Time) []Payment {
	asOf = Day(asOf)
	warned := make(map[string]bool)

	payments := make([]Payment, 0, len(events))
	for _, ev := range events {
		rule := m.lookupRule(ev.CounterpartyCode, rules, warned)
		due := ComputeDueDate(ev.BaseDate, rule)

		overdue := due.Before(asOf)
		if overdue && m.policy == PastDueDrop {
			continue
		}

		payments = append(payments, Payment{
			CounterpartyCode: ev.CounterpartyCode,
			BaseDate:         Day(ev.BaseDate),
			Amount:           ev.Amount,
			PartitionLabel:   ev.PartitionLabel,
			Reference:        ev.Reference,
			DueDate:          due,
			Overdue:          overdue,
		})
	}

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DueDate.Before(payments[j].DueDate)
	})

	return payments
}

// lookupRule returns the rule for code, or nil when there is none or it is
// malformed. Each malformed rule is logged once per build.
func (m *Merger) lookupRule(code string, rules Rules, warned map[string]bool) *Rule {
	if code == "" {
		return nil
	}
	rule, ok := rules[code]
	if !ok {
		return nil
	}
	if rule.CounterpartyCode == "" {
		rule.CounterpartyCode = code
	}
	if err := rule.Validate(); err != nil {
		if !warned[code] {
			m.logger.Warn("ignoring counterparty rule", "counterparty_code", code, "error", err)
			warned[code] = true
		}
		return nil
	}
	return &rule
}
