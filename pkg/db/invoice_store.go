package db

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// InvoiceStore reads open invoices and the counterparty directory of a
// partition database.
type InvoiceStore struct {
	conn *Connection
}

// NewInvoiceStore creates a new InvoiceStore.
func NewInvoiceStore(conn *Connection) *InvoiceStore {
	return &InvoiceStore{conn: conn}
}

// ReadEvents returns every non-cancelled invoice.
func (s *InvoiceStore) ReadEvents(ctx context.Context) ([]schedule.PartitionEvent, error) {
	query := `
		SELECT counterparty_id, invoice_date, amount, reference
		FROM invoices
		WHERE cancelled = 0
		ORDER BY invoice_date, id
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var events []schedule.PartitionEvent
	for rows.Next() {
		var (
			ev          schedule.PartitionEvent
			invoiceDate string
			amount      string
		)

		if err := rows.Scan(&ev.CounterpartyRef, &invoiceDate, &amount, &ev.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		ev.BaseDate, err = schedule.ParseDay(invoiceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice date %q: %w", invoiceDate, err)
		}
		ev.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice amount %q: %w", amount, err)
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}

	return events, nil
}

// Counterparties maps counterparty ids of this partition to their codes.
func (s *InvoiceStore) Counterparties(ctx context.Context) (map[int64]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, code FROM counterparties`)
	if err != nil {
		return nil, fmt.Errorf("failed to query counterparties: %w", err)
	}
	defer rows.Close()

	directory := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			code string
		)
		if err := rows.Scan(&id, &code); err != nil {
			return nil, fmt.Errorf("failed to scan counterparty: %w", err)
		}
		directory[id] = code
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counterparties: %w", err)
	}

	return directory, nil
}
