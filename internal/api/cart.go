package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/cart"
	"pharmapos/m/internal/checkout"
	"pharmapos/m/internal/journal"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/pricing"
	"pharmapos/m/internal/units"
)

type lineView struct {
	cart.Line
	UnitPrice decimal.Decimal   `json:"unit_price"`
	LineTotal decimal.Decimal   `json:"line_total"`
	BaseUnits int64             `json:"base_units"`
	SaleTypes []domain.SaleType `json:"sale_types"`
}

type cartView struct {
	Lines        []lineView      `json:"lines"`
	Count        int             `json:"count"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	Split        *pricing.Split  `json:"split,omitempty"`
}

func newCartView(c *cart.Cart, coverage *float64) cartView {
	lines := c.Lines()
	metrics.CartLines(len(lines))

	v := cartView{Lines: make([]lineView, 0, len(lines)), Count: len(lines)}
	for _, l := range lines {
		v.Lines = append(v.Lines, lineView{
			Line:      l,
			UnitPrice: l.UnitPrice(),
			LineTotal: l.Total(),
			BaseUnits: l.BaseUnits(),
			SaleTypes: units.RatiosOf(l.Medicine).SaleTypes(),
		})
	}
	v.Total = cart.Total(lines)
	v.TotalDisplay = pricing.Display(v.Total)
	if coverage != nil {
		split := pricing.InsuranceSplit(v.Total, *coverage)
		v.Split = &split
	}
	return v
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	respondJSON(w, status, newCartView(sessionFrom(r).Cart, nil))
}

func lineID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid medicine id")
	}
	return id, nil
}

// lineFor resolves the cart line named in the URL, writing the error response
// when there is none.
func (h *Handler) lineFor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := lineID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if !sessionFrom(r).Cart.Contains(id) {
		respondError(w, http.StatusNotFound, "medicine not in cart")
		return 0, false
	}
	return id, true
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	var coverage *float64
	if raw := r.URL.Query().Get("coverage_percent"); raw != "" {
		c, err := strconv.ParseFloat(raw, 64)
		if err != nil || c < 0 || c > 100 {
			respondError(w, http.StatusBadRequest, "coverage_percent must be between 0 and 100")
			return
		}
		coverage = &c
	}
	respondJSON(w, http.StatusOK, newCartView(sessionFrom(r).Cart, coverage))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Cart.Clear()
	h.respondCart(w, r, http.StatusOK)
}

type addItemRequest struct {
	MedicineID int64 `json:"medicine_id"`
}

// addCartItem fetches the medicine from the backend so the line holds current
// prices and ratios.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MedicineID <= 0 {
		respondError(w, http.StatusBadRequest, "medicine_id is required")
		return
	}
	sess := sessionFrom(r)
	m, err := h.backend.GetMedicine(r.Context(), sess.Token, req.MedicineID)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	sess.Cart.Add(m)
	h.respondCart(w, r, http.StatusOK)
}

type quantityRequest struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineFor(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionFrom(r).Cart.UpdateQuantity(id, req.Delta)
	h.respondCart(w, r, http.StatusOK)
}

type saleTypeRequest struct {
	SaleType domain.SaleType `json:"sale_type"`
}

func (h *Handler) updateCartSaleType(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineFor(w, r)
	if !ok {
		return
	}
	var req saleTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.SaleType.Valid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown sale type %q", req.SaleType))
		return
	}
	if !sessionFrom(r).Cart.UpdateSaleType(id, req.SaleType) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("medicine is not sold by %s", req.SaleType))
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

type discountRequest struct {
	DiscountPercent float64 `json:"discount_percent"`
}

func (h *Handler) updateCartDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineFor(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionFrom(r).Cart.UpdateDiscount(id, req.DiscountPercent)
	h.respondCart(w, r, http.StatusOK)
}

type bonusRequest struct {
	IsBonus bool `json:"is_bonus"`
}

func (h *Handler) updateCartBonus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineFor(w, r)
	if !ok {
		return
	}
	var req bonusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionFrom(r).Cart.SetBonus(id, req.IsBonus)
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lineFor(w, r)
	if !ok {
		return
	}
	sessionFrom(r).Cart.Remove(id)
	h.respondCart(w, r, http.StatusOK)
}

// Checkout

func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.checkout.Checkout(r.Context(), sessionFrom(r), req)
	var vErr *checkout.ValidationError
	var subErr *checkout.SubmissionError
	switch {
	case err == nil:
		metrics.CartLines(sessionFrom(r).Cart.Len())
		respondJSON(w, http.StatusCreated, res)
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, checkout.ErrInFlight):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &subErr):
		h.respondBackendError(w, subErr.Err)
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Sales

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}

// listSales reads the local journal. scope=session limits it to the sales of
// the current session; start_date and end_date are inclusive days.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("start_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	to, err := parseDate(q.Get("end_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end_date")
		return
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	f := journal.Filter{From: from, To: to}
	if q.Get("scope") == "session" {
		f.SessionID = sessionFrom(r).ID.String()
	}
	receipts, err := h.journal.List(r.Context(), f)
	if err != nil {
		h.log.Error("list receipts", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load sales")
		return
	}
	respondJSON(w, http.StatusOK, receipts)
}

func (h *Handler) downloadInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	pdf, err := h.backend.Invoice(r.Context(), sessionFrom(r).Token, id)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=facture_%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
