package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmapos/m/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func TestLoginPostsForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
			t.Errorf("form = %v, err %v", r.PostForm, err)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "token_type": "bearer"})
	})

	tok, err := c.Login(context.Background(), "alice", "s3cret")
	if err != nil || tok.AccessToken != "tok" {
		t.Fatalf("Login = %+v, %v", tok, err)
	}
}

func TestListMedicinesSendsQueryAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("search") != "amox" || q.Get("page") != "1" || q.Get("page_size") != "20" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"items":[{"id":4,"name":"Amoxicilline","quantity":120.0,"price_sell":1500.5,"units_per_blister":10,"blisters_per_box":2,"boxes_per_carton":1,"packaging":"Boîte"}],"total":1,"page":1,"page_size":20,"total_pages":1}`))
	})

	page, err := c.ListMedicines(context.Background(), "tok", MedicineQuery{Search: " amox "})
	if err != nil {
		t.Fatalf("ListMedicines: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %+v", page.Items)
	}
	m := page.Items[0]
	if m.ID != 4 || m.Quantity != 120 || m.PriceSell.String() != "1500.5" || m.BlistersPerBox != 2 || *m.Packaging != "Boîte" {
		t.Fatalf("medicine = %+v", m)
	}
}

func TestCreateSaleSurfacesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req domain.SaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Items) != 1 || req.Items[0].SaleType != domain.SaleTypeBlister {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Stock insuffisant pour Amoxicilline."}`))
	})

	_, err := c.CreateSale(context.Background(), "tok", domain.SaleRequest{
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 2, SaleType: domain.SaleTypeBlister}},
		PaymentMethod: domain.PaymentCash,
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Detail != "Stock insuffisant pour Amoxicilline." {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestValidationDetailList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`))
	})
	_, err := c.GetMedicine(context.Background(), "tok", 3)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "field required; value is not a valid integer" {
		t.Fatalf("err = %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})
	_, err := c.Me(context.Background(), "stale")
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized(%v) = false", err)
	}
}

func TestInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sales/12/invoice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})
	pdf, err := c.Invoice(context.Background(), "tok", 12)
	if err != nil || string(pdf) != "%PDF-1.4" {
		t.Fatalf("Invoice = %q, %v", pdf, err)
	}
}
