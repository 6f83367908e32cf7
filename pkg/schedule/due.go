package schedule

import "time"

// DateLayout is the date format used by every source and the API.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ComputeDueDate applies rule to base. A nil rule leaves the date unchanged.
//
// The fixed offset is added first; the result is then moved forward, never
// backward, to the rule's target weekday.
func ComputeDueDate(base time.Time, rule *Rule) time.Time {
	due := Day(base)
	if rule == nil {
		return due
	}

	due = due.AddDate(0, 0, rule.FixedOffsetDays)

	if rule.TargetWeekday != nil {
		delta := (*rule.TargetWeekday - ruleWeekday(due.Weekday()) + 7) % 7
		due = due.AddDate(0, 0, delta)
	}

	return due
}
