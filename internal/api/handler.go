package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/backend"
	"pharmapos/m/internal/checkout"
	"pharmapos/m/internal/journal"
	"pharmapos/m/internal/pricing"
	"pharmapos/m/internal/session"
	"pharmapos/m/internal/units"
)

type ctxKey string

const ctxSession ctxKey = "session"

// Backend is the part of the pharmacy backend the terminal uses.
type Backend interface {
	Login(ctx context.Context, username, password string) (domain.Token, error)
	Me(ctx context.Context, token string) (domain.User, error)
	ListMedicines(ctx context.Context, token string, q backend.MedicineQuery) (domain.MedicinePage, error)
	GetMedicine(ctx context.Context, token string, id int64) (domain.Medicine, error)
	CreateMedicine(ctx context.Context, token string, in domain.MedicineInput) (domain.Medicine, error)
	UpdateMedicine(ctx context.Context, token string, id int64, in domain.MedicineInput) (domain.Medicine, error)
	Invoice(ctx context.Context, token string, saleID int64) ([]byte, error)
}

type Options struct {
	AllowedOrigins []string
	Metrics        bool
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	sessions *session.Store
	backend  Backend
	checkout *checkout.Service
	journal  *journal.Journal
	log      *slog.Logger
	opts     Options
}

// New constructs a Handler.
func New(sessions *session.Store, be Backend, co *checkout.Service, j *journal.Journal, log *slog.Logger, opts Options) *Handler {
	return &Handler{sessions: sessions, backend: be, checkout: co, journal: j, log: log, opts: opts}
}

// Router wires up the HTTP API served to the POS interface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.originGuard)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", h.health)
	if h.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/session", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.With(h.sessionMiddleware).Get("/", h.currentSession)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.sessionMiddleware)

		pr.Get("/products", h.listProducts)

		pr.Route("/stock/medicines", func(r chi.Router) {
			r.Post("/", h.createMedicine)
			r.Put("/{id}", h.updateMedicine)
		})

		pr.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{id}/quantity", h.updateCartQuantity)
			r.Put("/items/{id}/sale-type", h.updateCartSaleType)
			r.Put("/items/{id}/discount", h.updateCartDiscount)
			r.Put("/items/{id}/bonus", h.updateCartBonus)
			r.Delete("/items/{id}", h.removeCartItem)
		})

		pr.Post("/checkout", h.submitCheckout)

		pr.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Get("/{id}/invoice", h.downloadInvoice)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// originGuard rejects browser requests coming from a page other than the
// configured UI. Requests without an Origin header (curl, the shell) pass.
func (h *Handler) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !h.originAllowed(origin) {
			respondError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) originAllowed(origin string) bool {
	for _, o := range h.opts.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Current()
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ctxSession).(*session.Session)
}

// Session handlers

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SessionID string      `json:"session_id"`
	User      domain.User `json:"user"`
	StartedAt time.Time   `json:"started_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

func newSessionResponse(sess *session.Session) sessionResponse {
	resp := sessionResponse{SessionID: sess.ID.String(), User: sess.User, StartedAt: sess.StartedAt}
	if !sess.ExpiresAt.IsZero() {
		resp.ExpiresAt = &sess.ExpiresAt
	}
	return resp
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	tok, err := h.backend.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	user, err := h.backend.Me(r.Context(), tok.AccessToken)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	sess, err := h.sessions.Begin(tok.AccessToken, user)
	if err != nil {
		respondError(w, http.StatusBadGateway, "backend issued an unreadable token")
		return
	}
	h.log.Info("session started", "session", sess.ID, "user", sess.Username)
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.End()
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newSessionResponse(sessionFrom(r)))
}

// Product handlers

type productView struct {
	domain.Medicine
	Stock           string                              `json:"stock"`
	StockBreakdown  []units.Part                        `json:"stock_breakdown"`
	DisplayQuantity int64                               `json:"display_quantity"`
	SaleTypes       []domain.SaleType                   `json:"sale_types"`
	UnitPrices      map[domain.SaleType]decimal.Decimal `json:"unit_prices"`
}

func newProductView(m domain.Medicine) productView {
	ratios := units.RatiosOf(m)
	stock := units.StockOf(m)
	parts := units.Breakdown(stock, ratios, units.LabelsOf(m))

	v := productView{
		Medicine:        m,
		Stock:           units.Format(parts),
		StockBreakdown:  parts,
		DisplayQuantity: units.ToDisplayQuantity(stock, ratios),
		SaleTypes:       ratios.SaleTypes(),
		UnitPrices:      make(map[domain.SaleType]decimal.Decimal),
	}
	for _, t := range v.SaleTypes {
		v.UnitPrices[t] = pricing.UnitPrice(m, t)
	}
	return v
}

type productPage struct {
	Items      []productView `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	listing, err := h.backend.ListMedicines(r.Context(), sess.Token, backend.MedicineQuery{
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.respondBackendError(w, err)
		return
	}

	out := productPage{
		Items:      make([]productView, 0, len(listing.Items)),
		Total:      listing.Total,
		Page:       listing.Page,
		PageSize:   listing.PageSize,
		TotalPages: listing.TotalPages,
	}
	for _, m := range listing.Items {
		out.Items = append(out.Items, newProductView(m))
	}
	respondJSON(w, http.StatusOK, out)
}

// Stock handlers

// medicineFromForm converts the quantity typed in the stock form, counted in
// the largest packaging unit, to base units.
func medicineFromForm(in domain.MedicineInput) (domain.MedicineInput, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" {
		return in, errors.New("code and name are required")
	}
	if in.Quantity < 0 {
		return in, errors.New("quantity must not be negative")
	}
	if in.PriceSell.IsNegative() || in.PriceBuy.IsNegative() {
		return in, errors.New("prices must not be negative")
	}
	ratios := units.Ratios{
		UnitsPerBlister: in.UnitsPerBlister,
		BlistersPerBox:  in.BlistersPerBox,
		BoxesPerCarton:  in.BoxesPerCarton,
	}.Normalize()
	in.UnitsPerBlister = ratios.UnitsPerBlister
	in.BlistersPerBox = ratios.BlistersPerBox
	in.BoxesPerCarton = ratios.BoxesPerCarton
	base, err := units.ToBaseUnits(in.Quantity, ratios)
	if err != nil {
		return in, err
	}
	in.Quantity = base
	return in, nil
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var in domain.MedicineInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := medicineFromForm(in)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.backend.CreateMedicine(r.Context(), sessionFrom(r).Token, in)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, newProductView(m))
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var in domain.MedicineInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err = medicineFromForm(in)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.backend.UpdateMedicine(r.Context(), sessionFrom(r).Token, id, in)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newProductView(m))
}

// Helpers

// respondBackendError relays a backend failure. A 401 means the backend no
// longer accepts the session token, so the session is ended.
func (h *Handler) respondBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		h.log.Error("backend unreachable", "err", err)
		respondError(w, http.StatusBadGateway, "backend unreachable")
		return
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		h.sessions.End()
		respondError(w, http.StatusUnauthorized, apiErr.Error())
	case apiErr.Status >= 400 && apiErr.Status < 500:
		respondError(w, apiErr.Status, apiErr.Error())
	default:
		h.log.Error("backend error", "status", apiErr.Status, "detail", apiErr.Detail)
		respondError(w, http.StatusBadGateway, apiErr.Error())
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
