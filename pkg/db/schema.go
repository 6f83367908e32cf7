// Package db reads one partition's ledger and invoices from SQLite.
//
// Each bookkeeping partition (fiscal period or legal firm) lives in its own
// database file. The package only reads ledger data; the tables are filled
// by the ERP export.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Counterparties (customers and suppliers)
-- id is local to this partition; code is stable across partitions
CREATE TABLE IF NOT EXISTS counterparties (
    id INTEGER PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT ''
);

-- Transaction log
-- Append-only; cancelled lines are flagged, never deleted
CREATE TABLE IF NOT EXISTS transaction_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ledger_kind TEXT NOT NULL,             -- 'counterparty', 'bank_account' or 'stock'
    entity_ref TEXT NOT NULL,              -- counterparty id, account code or item code
    scope_ref TEXT NOT NULL DEFAULT '',    -- warehouse or bank account id
    amount TEXT NOT NULL,                  -- decimal magnitude
    sign INTEGER NOT NULL CHECK (sign IN (0, 1)),
    classification_code TEXT NOT NULL DEFAULT '',
    cancelled INTEGER NOT NULL DEFAULT 0,
    line_date TEXT NOT NULL                -- YYYY-MM-DD
);

CREATE INDEX IF NOT EXISTS idx_transaction_lines_entity
    ON transaction_lines(ledger_kind, entity_ref, scope_ref);

CREATE INDEX IF NOT EXISTS idx_transaction_lines_date
    ON transaction_lines(line_date);

-- Open invoices feeding the payment schedule
CREATE TABLE IF NOT EXISTS invoices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    counterparty_id INTEGER NOT NULL,
    invoice_date TEXT NOT NULL,            -- YYYY-MM-DD
    amount TEXT NOT NULL,                  -- decimal
    reference TEXT NOT NULL DEFAULT '',
    cancelled INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_invoices_date
    ON invoices(invoice_date);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
