package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// LedgerStore reads transaction lines from a partition database.
type LedgerStore struct {
	conn *Connection
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(conn *Connection) *LedgerStore {
	return &LedgerStore{conn: conn}
}

// ReadLines returns the non-cancelled lines matching q.
func (s *LedgerStore) ReadLines(ctx context.Context, q ledger.LineQuery) ([]ledger.TransactionLine, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT entity_ref, scope_ref, amount, sign, classification_code, cancelled, line_date
		FROM transaction_lines
		WHERE ledger_kind = ? AND entity_ref = ? AND cancelled = 0`)
	args := []interface{}{string(q.Kind), q.EntityRef}

	if q.Scope != "" {
		sb.WriteString(` AND scope_ref = ?`)
		args = append(args, q.Scope)
	}
	if !q.From.IsZero() {
		sb.WriteString(` AND line_date >= ?`)
		args = append(args, q.From.Format(schedule.DateLayout))
	}
	if !q.To.IsZero() {
		sb.WriteString(` AND line_date <= ?`)
		args = append(args, q.To.Format(schedule.DateLayout))
	}
	sb.WriteString(` ORDER BY line_date, id`)

	rows, err := s.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.TransactionLine
	for rows.Next() {
		var (
			line      ledger.TransactionLine
			amount    string
			sign      int
			cancelled int
			lineDate  string
		)

		if err := rows.Scan(
			&line.EntityRef,
			&line.ScopePartition,
			&amount,
			&sign,
			&line.ClassificationCode,
			&cancelled,
			&lineDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction line: %w", err)
		}

		line.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		line.Date, err = schedule.ParseDay(lineDate)
		if err != nil {
			return nil, fmt.Errorf("invalid line date %q: %w", lineDate, err)
		}
		line.Sign = ledger.Sign(sign)
		line.Cancelled = cancelled != 0

		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction lines: %w", err)
	}

	return lines, nil
}
