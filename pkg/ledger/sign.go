package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SignRule says how a classification code maps a recorded sign to the sign
// that is applied to the balance.
type SignRule int

const (
	// SignAsRecorded applies the line's sign unchanged.
	SignAsRecorded SignRule = iota
	// SignInverted flips the line's sign. Transfers are recorded with the
	// same convention as other lines but mean an outflow at the source
	// partition.
	SignInverted
)

var signTransforms = map[SignRule]func(Sign) Sign{
	SignAsRecorded: func(s Sign) Sign { return s },
	SignInverted: func(s Sign) Sign {
		if s == SignIncrease {
			return SignDecrease
		}
		return SignIncrease
	},
}

func (r SignRule) String() string {
	switch r {
	case SignAsRecorded:
		return "as_recorded"
	case SignInverted:
		return "inverted"
	}
	return fmt.Sprintf("SignRule(%d)", int(r))
}

// ParseSignRule parses the names used in the ledger configuration file.
func ParseSignRule(s string) (SignRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "as_recorded", "":
		return SignAsRecorded, nil
	case "inverted", "invert":
		return SignInverted, nil
	}
	return 0, fmt.Errorf("unknown sign rule %q", s)
}

// Classifications is the table of classification codes whose effective
// sign differs from the recorded one. Codes not in the table keep their
// recorded sign.
type Classifications map[string]SignRule

// Rule returns the sign rule for a classification code.
func (c Classifications) Rule(code string) SignRule {
	if r, ok := c[code]; ok {
		return r
	}
	return SignAsRecorded
}

// EffectiveSign returns the sign a line contributes with.
func (c Classifications) EffectiveSign(line TransactionLine) Sign {
	transform, ok := signTransforms[c.Rule(line.ClassificationCode)]
	if !ok {
		return line.Sign
	}
	return transform(line.Sign)
}

// Contribution returns the signed amount a line adds to its balance.
// Cancelled lines contribute zero.
func (c Classifications) Contribution(line TransactionLine) decimal.Decimal {
	if line.Cancelled {
		return decimal.Zero
	}
	if c.EffectiveSign(line) == SignDecrease {
		return line.Amount.Neg()
	}
	return line.Amount
}
