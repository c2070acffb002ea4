package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the schema of the local receipt journal.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS receipts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL UNIQUE,
            code TEXT NOT NULL,
            session_id TEXT NOT NULL,
            cashier TEXT,
            payment_method TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            coverage_percent REAL DEFAULT 0,
            insurance_share TEXT NOT NULL,
            patient_share TEXT NOT NULL,
            customer_phone TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS receipt_lines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            receipt_id INTEGER NOT NULL,
            medicine_id INTEGER NOT NULL,
            medicine_name TEXT NOT NULL,
            sale_type TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            base_units INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            discount_percent REAL DEFAULT 0,
            line_total TEXT NOT NULL,
            is_bonus INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY(receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_session ON receipts(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_created ON receipts(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_receipt_lines_receipt ON receipt_lines(receipt_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
