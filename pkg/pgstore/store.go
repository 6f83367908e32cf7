// Package pgstore reads a partition's ledger and invoices from the legacy
// ERP's PostgreSQL schema.
package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// Connect opens a connection pool and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}

// Store reads one partition. Partitions sharing a database are told apart
// by their schema name.
type Store struct {
	pool   *pgxpool.Pool
	schema string
}

// New creates a Store over pool. schema may be empty for the search path.
func New(pool *pgxpool.Pool, schema string) *Store {
	return &Store{pool: pool, schema: schema}
}

func (s *Store) table(name string) string {
	if s.schema == "" {
		return name
	}
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// ReadLines returns the non-cancelled lines matching q.
func (s *Store) ReadLines(ctx context.Context, q ledger.LineQuery) ([]ledger.TransactionLine, error) {
	query, args := s.linesQuery(q)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.TransactionLine
	for rows.Next() {
		var (
			line   ledger.TransactionLine
			amount string
			sign   int
		)
		if err := rows.Scan(
			&line.EntityRef,
			&line.ScopePartition,
			&amount,
			&sign,
			&line.ClassificationCode,
			&line.Cancelled,
			&line.Date,
		); err != nil {
			return nil, fmt.Errorf("scan transaction line: %w", err)
		}

		line.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		line.Sign = ledger.Sign(sign)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transaction lines: %w", err)
	}

	return lines, nil
}

func (s *Store) linesQuery(q ledger.LineQuery) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT entity_ref, scope_ref, amount::text, sign, classification_code, cancelled, line_date
		FROM %s
		WHERE ledger_kind = $1 AND entity_ref = $2 AND NOT cancelled`, s.table("transaction_lines"))
	args := []any{string(q.Kind), q.EntityRef}

	if q.Scope != "" {
		args = append(args, q.Scope)
		fmt.Fprintf(&sb, ` AND scope_ref = $%d`, len(args))
	}
	if !q.From.IsZero() {
		args = append(args, schedule.Day(q.From))
		fmt.Fprintf(&sb, ` AND line_date >= $%d`, len(args))
	}
	if !q.To.IsZero() {
		args = append(args, schedule.Day(q.To))
		fmt.Fprintf(&sb, ` AND line_date <= $%d`, len(args))
	}
	sb.WriteString(` ORDER BY line_date, id`)

	return sb.String(), args
}

// ReadEvents returns every non-cancelled invoice of the partition.
func (s *Store) ReadEvents(ctx context.Context) ([]schedule.PartitionEvent, error) {
	query := fmt.Sprintf(`SELECT counterparty_id, invoice_date, amount::text, reference
		FROM %s
		WHERE NOT cancelled
		ORDER BY invoice_date, id`, s.table("invoices"))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var events []schedule.PartitionEvent
	for rows.Next() {
		var (
			ev     schedule.PartitionEvent
			amount string
		)
		if err := rows.Scan(&ev.CounterpartyRef, &ev.BaseDate, &amount, &ev.Reference); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		ev.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice amount %q: %w", amount, err)
		}
		ev.BaseDate = schedule.Day(ev.BaseDate)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read invoices: %w", err)
	}

	return events, nil
}

// Counterparties maps counterparty ids of this partition to their codes.
func (s *Store) Counterparties(ctx context.Context) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT id, code FROM %s`, s.table("counterparties")))
	if err != nil {
		return nil, fmt.Errorf("query counterparties: %w", err)
	}

	directory := make(map[int64]string)
	var (
		id   int64
		code string
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &code}, func() error {
		directory[id] = code
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read counterparties: %w", err)
	}

	return directory, nil
}
