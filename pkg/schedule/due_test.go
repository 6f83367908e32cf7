package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestComputeDueDate(t *testing.T) {
	tests := []struct {
		name string
		base string
		rule *Rule
		want string
	}{
		{"no rule passes through", "2026-01-14", nil, "2026-01-14"},
		{"zero rule", "2026-01-14", &Rule{CounterpartyCode: "X"}, "2026-01-14"},
		{"offset only", "2026-01-14", &Rule{FixedOffsetDays: 5}, "2026-01-19"},
		{"offset across month", "2026-01-30", &Rule{FixedOffsetDays: 30}, "2026-03-01"},
		{"already on weekday", "2026-01-12", &Rule{TargetWeekday: Weekday(time.Monday)}, "2026-01-12"},
		{"wednesday to monday", "2026-01-14", &Rule{TargetWeekday: Weekday(time.Monday)}, "2026-01-19"},
		{"sunday to saturday", "2026-01-11", &Rule{TargetWeekday: Weekday(time.Saturday)}, "2026-01-17"},
		{"offset then weekday", "2026-01-10", &Rule{FixedOffsetDays: 3, TargetWeekday: Weekday(time.Tuesday)}, "2026-01-13"},
		{"offset lands past weekday", "2026-01-10", &Rule{FixedOffsetDays: 4, TargetWeekday: Weekday(time.Tuesday)}, "2026-01-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDueDate(date(t, tt.base), tt.rule)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}
}

func TestComputeDueDate_NeverBackward(t *testing.T) {
	base := date(t, "2026-01-01")
	for day := 0; day < 14; day++ {
		for wd := 0; wd < 7; wd++ {
			w := wd
			b := base.AddDate(0, 0, day)
			got := ComputeDueDate(b, &Rule{TargetWeekday: &w})
			assert.False(t, got.Before(b), "moved backward from %s", b.Format(DateLayout))
			assert.Less(t, got.Sub(b), 7*24*time.Hour)
			assert.Equal(t, w, ruleWeekday(got.Weekday()))
		}
	}
}

func TestComputeDueDate_TruncatesTime(t *testing.T) {
	base := time.Date(2026, 1, 14, 17, 45, 0, 0, time.UTC)
	got := ComputeDueDate(base, &Rule{FixedOffsetDays: 1})
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestRuleValidate(t *testing.T) {
	seven := 7
	neg := -1

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid", Rule{CounterpartyCode: "ACME", FixedOffsetDays: 3, TargetWeekday: Weekday(time.Friday)}, false},
		{"no weekday", Rule{CounterpartyCode: "ACME"}, false},
		{"empty code", Rule{FixedOffsetDays: 3}, true},
		{"negative offset", Rule{CounterpartyCode: "ACME", FixedOffsetDays: -2}, true},
		{"weekday too large", Rule{CounterpartyCode: "ACME", TargetWeekday: &seven}, true},
		{"weekday negative", Rule{CounterpartyCode: "ACME", TargetWeekday: &neg}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRule)
				return
			}
			assert.NoError(t, err)
		})
	}
}
