// Package checkout turns the cart of a session into a sale on the backend.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/cart"
	"pharmapos/m/internal/journal"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/pricing"
	"pharmapos/m/internal/session"
)

// ErrInFlight is returned while another submission has not finished.
var ErrInFlight = errors.New("a checkout is already being submitted")

// ValidationError is a problem with the checkout input. Nothing was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SubmissionError wraps a failed submission. The cart is left untouched so the
// cashier can retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

type SaleSubmitter interface {
	CreateSale(ctx context.Context, token string, req domain.SaleRequest) (domain.Sale, error)
}

type Recorder interface {
	Record(ctx context.Context, r *journal.Receipt) error
}

type Request struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Customer      domain.Customer      `json:"customer"`
	Insurance     domain.Insurance     `json:"insurance"`
}

type Result struct {
	Sale      domain.Sale     `json:"sale"`
	Total     decimal.Decimal `json:"total"`
	Split     pricing.Split   `json:"split"`
	ReceiptID int64           `json:"receipt_id,omitempty"`
}

type Service struct {
	backend  SaleSubmitter
	journal  Recorder
	unit     cart.QuantityUnit
	log      *slog.Logger
	inFlight atomic.Bool
}

func New(backend SaleSubmitter, journal Recorder, unit cart.QuantityUnit, log *slog.Logger) *Service {
	return &Service{backend: backend, journal: journal, unit: unit, log: log}
}

// Checkout submits the session's cart. Only one submission runs at a time; on
// success the submitted lines leave the cart and the sale is recorded in the
// journal. Once submission starts it runs to completion even if ctx is
// cancelled; the backend client's timeout bounds it.
func (s *Service) Checkout(ctx context.Context, sess *session.Session, req Request) (Result, error) {
	lines := sess.Cart.Lines()
	if err := validate(lines, &req); err != nil {
		metrics.Checkout(metrics.ResultRejected)
		return Result{}, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.Checkout(metrics.ResultInFlight)
		return Result{}, ErrInFlight
	}
	defer s.inFlight.Store(false)

	ctx = context.WithoutCancel(ctx)
	payload := cart.SaleRequest(lines, s.unit, req.PaymentMethod, req.Customer, req.Insurance)

	start := time.Now()
	sale, err := s.backend.CreateSale(ctx, sess.Token, payload)
	metrics.ObserveSubmission(time.Since(start))
	if err != nil {
		metrics.Checkout(metrics.ResultFailed)
		s.log.Warn("sale submission failed", "session", sess.ID, "lines", len(lines), "err", err)
		return Result{}, &SubmissionError{Err: err}
	}

	sess.Cart.RemoveLines(lines)

	total := cart.Total(lines)
	coverage := 0.0
	if req.PaymentMethod == domain.PaymentInsuranceCard {
		coverage = req.Insurance.CoveragePercent
	}
	res := Result{Sale: sale, Total: total, Split: pricing.InsuranceSplit(total, coverage)}

	receipt := newReceipt(sess, sale, lines, req, res)
	if err := s.journal.Record(ctx, receipt); err != nil {
		metrics.Checkout(metrics.ResultUnrecorded)
		s.log.Error("sale not journaled", "sale_id", sale.ID, "code", sale.Code, "err", err)
		return res, nil
	}
	res.ReceiptID = receipt.ID

	metrics.Checkout(metrics.ResultSuccess)
	s.log.Info("sale created", "sale_id", sale.ID, "code", sale.Code, "total", pricing.Display(total), "payment", req.PaymentMethod)
	return res, nil
}

// InFlight reports whether a submission is running.
func (s *Service) InFlight() bool {
	return s.inFlight.Load()
}

func validate(lines []cart.Line, req *Request) error {
	if len(lines) == 0 {
		return &ValidationError{Message: "cart is empty"}
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if !req.PaymentMethod.Valid() {
		return &ValidationError{Message: fmt.Sprintf("unsupported payment method %q", req.PaymentMethod)}
	}
	if req.PaymentMethod != domain.PaymentInsuranceCard {
		return nil
	}
	if strings.TrimSpace(req.Insurance.Provider) == "" || strings.TrimSpace(req.Insurance.CardID) == "" {
		return &ValidationError{Message: "insurance provider and card number are required"}
	}
	if c := req.Insurance.CoveragePercent; c < 0 || c > 100 {
		return &ValidationError{Message: "coverage_percent must be between 0 and 100"}
	}
	return nil
}

func newReceipt(sess *session.Session, sale domain.Sale, lines []cart.Line, req Request, res Result) *journal.Receipt {
	r := &journal.Receipt{
		SaleID:         sale.ID,
		Code:           sale.Code,
		SessionID:      sess.ID.String(),
		Cashier:        sess.Username,
		PaymentMethod:  string(req.PaymentMethod),
		TotalAmount:    res.Total,
		InsuranceShare: res.Split.Insurance,
		PatientShare:   res.Split.Patient,
	}
	if req.PaymentMethod == domain.PaymentInsuranceCard {
		r.CoveragePercent = req.Insurance.CoveragePercent
	}
	if phone := strings.TrimSpace(req.Customer.Phone); phone != "" {
		r.CustomerPhone = &phone
	}
	for _, l := range lines {
		r.Lines = append(r.Lines, journal.Line{
			MedicineID:      l.Medicine.ID,
			MedicineName:    l.Medicine.Name,
			SaleType:        string(l.SaleType),
			Quantity:        l.Quantity,
			BaseUnits:       l.BaseUnits(),
			UnitPrice:       l.UnitPrice(),
			DiscountPercent: l.DiscountPercent,
			LineTotal:       l.Total(),
			IsBonus:         l.IsBonus,
		})
	}
	return r
}
