// Package journal keeps a local record of the sales confirmed by the backend
// from this terminal.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("receipt not found")

type Receipt struct {
	ID              int64           `db:"id" json:"id"`
	SaleID          int64           `db:"sale_id" json:"sale_id"`
	Code            string          `db:"code" json:"code"`
	SessionID       string          `db:"session_id" json:"session_id"`
	Cashier         string          `db:"cashier" json:"cashier"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	CoveragePercent float64         `db:"coverage_percent" json:"coverage_percent"`
	InsuranceShare  decimal.Decimal `db:"insurance_share" json:"insurance_share"`
	PatientShare    decimal.Decimal `db:"patient_share" json:"patient_share"`
	CustomerPhone   *string         `db:"customer_phone" json:"customer_phone,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	Lines           []Line          `db:"-" json:"lines"`
}

type Line struct {
	ReceiptID       int64           `db:"receipt_id" json:"-"`
	MedicineID      int64           `db:"medicine_id" json:"medicine_id"`
	MedicineName    string          `db:"medicine_name" json:"medicine_name"`
	SaleType        string          `db:"sale_type" json:"sale_type"`
	Quantity        int64           `db:"quantity" json:"quantity"`
	BaseUnits       int64           `db:"base_units" json:"base_units"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	DiscountPercent float64         `db:"discount_percent" json:"discount_percent"`
	LineTotal       decimal.Decimal `db:"line_total" json:"line_total"`
	IsBonus         bool            `db:"is_bonus" json:"is_bonus"`
}

// Filter narrows List. Zero values do not filter.
type Filter struct {
	SessionID string
	From      time.Time
	To        time.Time
}

type Journal struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// Record stores a receipt and its lines. ID and CreatedAt are filled in.
func (j *Journal) Record(ctx context.Context, r *Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO receipts (sale_id, code, session_id, cashier, payment_method, total_amount, coverage_percent, insurance_share, patient_share, customer_phone, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SaleID, r.Code, r.SessionID, r.Cashier, r.PaymentMethod, r.TotalAmount, r.CoveragePercent, r.InsuranceShare, r.PatientShare, r.CustomerPhone, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt %d: %w", r.SaleID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("receipt id: %w", err)
	}

	for i := range r.Lines {
		l := &r.Lines[i]
		l.ReceiptID = id
		if _, err := tx.ExecContext(ctx, `INSERT INTO receipt_lines (receipt_id, medicine_id, medicine_name, sale_type, quantity, base_units, unit_price, discount_percent, line_total, is_bonus)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, l.MedicineID, l.MedicineName, l.SaleType, l.Quantity, l.BaseUnits, l.UnitPrice, l.DiscountPercent, l.LineTotal, l.IsBonus); err != nil {
			return fmt.Errorf("insert receipt line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt: %w", err)
	}
	r.ID = id
	return nil
}

const receiptColumns = `id, sale_id, code, session_id, cashier, payment_method, total_amount, coverage_percent, insurance_share, patient_share, customer_phone, created_at`

// List returns receipts newest first with their lines.
func (j *Journal) List(ctx context.Context, f Filter) ([]Receipt, error) {
	var (
		args    []any
		clauses []string
	)
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		clauses = append(clauses, "session_id = ?")
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		clauses = append(clauses, "created_at >= ?")
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		clauses = append(clauses, "created_at <= ?")
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var receipts []Receipt
	if err := j.db.SelectContext(ctx, &receipts, query, args...); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	if len(receipts) == 0 {
		return []Receipt{}, nil
	}
	if err := j.attachLines(ctx, receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// Get returns the receipt of a backend sale.
func (j *Journal) Get(ctx context.Context, saleID int64) (Receipt, error) {
	var r Receipt
	err := j.db.GetContext(ctx, &r, `SELECT `+receiptColumns+` FROM receipts WHERE sale_id = ?`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, ErrNotFound
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("get receipt %d: %w", saleID, err)
	}
	receipts := []Receipt{r}
	if err := j.attachLines(ctx, receipts); err != nil {
		return Receipt{}, err
	}
	return receipts[0], nil
}

func (j *Journal) attachLines(ctx context.Context, receipts []Receipt) error {
	ids := make([]int64, len(receipts))
	for i, r := range receipts {
		ids[i] = r.ID
	}

	query, args, err := sqlx.In(`SELECT receipt_id, medicine_id, medicine_name, sale_type, quantity, base_units, unit_price, discount_percent, line_total, is_bonus
                FROM receipt_lines
                WHERE receipt_id IN (?)
                ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("prepare receipt lines query: %w", err)
	}
	query = j.db.Rebind(query)

	var lines []Line
	if err := j.db.SelectContext(ctx, &lines, query, args...); err != nil {
		return fmt.Errorf("load receipt lines: %w", err)
	}
	byReceipt := make(map[int64][]Line)
	for _, l := range lines {
		byReceipt[l.ReceiptID] = append(byReceipt[l.ReceiptID], l)
	}
	for i := range receipts {
		receipts[i].Lines = byReceipt[receipts[i].ID]
		if receipts[i].Lines == nil {
			receipts[i].Lines = []Line{}
		}
	}
	return nil
}
