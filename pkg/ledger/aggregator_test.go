package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	lines []TransactionLine
	err   error
	last  LineQuery
}

func (s *stubReader) ReadLines(_ context.Context, q LineQuery) ([]TransactionLine, error) {
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	return s.lines, nil
}

func line(ref string, amount int64, sign Sign) TransactionLine {
	return TransactionLine{
		EntityRef: ref,
		Amount:    decimal.NewFromInt(amount),
		Sign:      sign,
		Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeBalance(t *testing.T) {
	cancelled := line("C001", 999, SignIncrease)
	cancelled.Cancelled = true

	reader := &stubReader{lines: []TransactionLine{
		line("C001", 100, SignIncrease),
		line("C001", 30, SignDecrease),
		cancelled,
	}}
	agg := NewCounterpartyView(reader, nil)

	got, err := agg.ComputeBalance(context.Background(), Query{EntityRef: "C001"})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(70)), "got %s", got)
	assert.Equal(t, KindCounterparty, reader.last.Kind)
	assert.Equal(t, "C001", reader.last.EntityRef)
}

func TestComputeBalance_CancelledLinesNeverCount(t *testing.T) {
	base := []TransactionLine{
		line("W-ITEM", 12, SignIncrease),
		line("W-ITEM", 5, SignDecrease),
		{EntityRef: "W-ITEM", Amount: decimal.NewFromInt(7), Sign: SignIncrease, ClassificationCode: DefaultTransferCode},
	}

	tests := []struct {
		name string
		sign Sign
		code string
	}{
		{"cancelled increase", SignIncrease, ""},
		{"cancelled decrease", SignDecrease, ""},
		{"cancelled transfer", SignIncrease, DefaultTransferCode},
	}

	signs := DefaultClassifications()[KindStock]
	want := Sum(base, Query{EntityRef: "W-ITEM"}, signs)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := TransactionLine{
				EntityRef:          "W-ITEM",
				Amount:             decimal.NewFromInt(4321),
				Sign:               tt.sign,
				ClassificationCode: tt.code,
				Cancelled:          true,
			}
			lines := append(append([]TransactionLine{}, base...), c)
			got := Sum(lines, Query{EntityRef: "W-ITEM"}, signs)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestComputeBalance_TransferInverted(t *testing.T) {
	transfer := line("ITEM-1", 50, SignIncrease)
	transfer.ClassificationCode = DefaultTransferCode
	transfer.ScopePartition = "WH-A"

	agg := NewStockView(&stubReader{lines: []TransactionLine{transfer}}, DefaultClassifications()[KindStock])

	got, err := agg.ComputeBalance(context.Background(), Query{EntityRef: "ITEM-1", Scope: "WH-A"})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(-50)), "got %s", got)
}

func TestComputeBalance_CounterpartyTransferAsRecorded(t *testing.T) {
	transfer := line("C001", 50, SignIncrease)
	transfer.ClassificationCode = DefaultTransferCode

	agg := NewCounterpartyView(&stubReader{lines: []TransactionLine{transfer}}, DefaultClassifications()[KindCounterparty])

	got, err := agg.ComputeBalance(context.Background(), Query{EntityRef: "C001"})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(50)), "got %s", got)
}

func TestComputeBalance_NoLinesIsZero(t *testing.T) {
	agg := NewBankAccountView(&stubReader{}, nil)

	got, err := agg.ComputeBalance(context.Background(), Query{EntityRef: "1010", Scope: "BANK-1"})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestComputeBalance_SourceUnavailable(t *testing.T) {
	readErr := errors.New("connection refused")
	agg := NewCounterpartyView(&stubReader{err: readErr}, nil)

	_, err := agg.ComputeBalance(context.Background(), Query{EntityRef: "C001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, readErr)
}

func TestSum_Filters(t *testing.T) {
	inA := line("ITEM-1", 10, SignIncrease)
	inA.ScopePartition = "WH-A"
	inB := line("ITEM-1", 3, SignIncrease)
	inB.ScopePartition = "WH-B"
	late := line("ITEM-1", 100, SignIncrease)
	late.ScopePartition = "WH-A"
	late.Date = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	other := line("ITEM-2", 40, SignIncrease)
	other.ScopePartition = "WH-A"

	lines := []TransactionLine{inA, inB, late, other}

	tests := []struct {
		name string
		q    Query
		want int64
	}{
		{"all scopes", Query{EntityRef: "ITEM-1"}, 113},
		{"single scope", Query{EntityRef: "ITEM-1", Scope: "WH-A"}, 110},
		{"as of", Query{EntityRef: "ITEM-1", Scope: "WH-A", AsOf: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}, 10},
		{"unknown entity", Query{EntityRef: "ITEM-9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sum(lines, tt.q, nil)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}
