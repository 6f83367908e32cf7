// Package schedule derives the forward payment schedule (DBS) from invoice
// dates and per-counterparty timing rules.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRule marks a malformed counterparty rule. Invalid rules are
	// treated as absent.
	ErrInvalidRule = errors.New("invalid counterparty rule")

	// ErrSourceUnavailable marks a partition or rule store that could not
	// be read. The schedule skips it and continues.
	ErrSourceUnavailable = errors.New("schedule source unavailable")
)

// Rule holds the payment timing agreed with one counterparty.
//
// TargetWeekday counts Monday = 0 through Sunday = 6.
type Rule struct {
	CounterpartyCode string `json:"counterparty_code" yaml:"counterparty_code"`
	FixedOffsetDays  int    `json:"fixed_offset_days" yaml:"fixed_offset_days"`
	TargetWeekday    *int   `json:"target_weekday,omitempty" yaml:"target_weekday,omitempty"`
}

// Rules maps counterparty codes to their rule.
type Rules map[string]Rule

// Validate checks the rule's fields.
func (r Rule) Validate() error {
	if r.CounterpartyCode == "" {
		return fmt.Errorf("%w: empty counterparty code", ErrInvalidRule)
	}
	if r.FixedOffsetDays < 0 {
		return fmt.Errorf("%w: %s: negative offset %d", ErrInvalidRule, r.CounterpartyCode, r.FixedOffsetDays)
	}
	if r.TargetWeekday != nil && (*r.TargetWeekday < 0 || *r.TargetWeekday > 6) {
		return fmt.Errorf("%w: %s: weekday %d out of range 0..6", ErrInvalidRule, r.CounterpartyCode, *r.TargetWeekday)
	}
	return nil
}

// Weekday returns a pointer to the rule weekday number of d, for building
// rules in code.
func Weekday(d time.Weekday) *int {
	n := ruleWeekday(d)
	return &n
}

// ruleWeekday converts Go's Sunday-first weekday to the Monday-first
// numbering used by rules.
func ruleWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
