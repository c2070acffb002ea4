// Package backend talks to the pharmacy REST backend that owns stock, sales
// and users.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pharmapos/m/domain"
)

// APIError is a non-2xx answer from the backend. Detail carries the server's
// message verbatim when it sent one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return e.Detail
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client. The timeout applies to every request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Token, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok domain.Token
	if err := c.do(req, &tok); err != nil {
		return domain.Token{}, fmt.Errorf("login: %w", err)
	}
	return tok, nil
}

func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	var user domain.User
	if err := c.send(ctx, token, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return domain.User{}, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

type MedicineQuery struct {
	Search   string
	Page     int
	PageSize int
}

func (c *Client) ListMedicines(ctx context.Context, token string, q MedicineQuery) (domain.MedicinePage, error) {
	params := url.Values{}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_size", strconv.Itoa(q.PageSize))
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}

	var page domain.MedicinePage
	if err := c.send(ctx, token, http.MethodGet, "/stock/medicines?"+params.Encode(), nil, &page); err != nil {
		return domain.MedicinePage{}, fmt.Errorf("list medicines: %w", err)
	}
	return page, nil
}

func (c *Client) GetMedicine(ctx context.Context, token string, id int64) (domain.Medicine, error) {
	var m domain.Medicine
	if err := c.send(ctx, token, http.MethodGet, fmt.Sprintf("/stock/medicines/%d", id), nil, &m); err != nil {
		return domain.Medicine{}, fmt.Errorf("get medicine %d: %w", id, err)
	}
	return m, nil
}

func (c *Client) CreateMedicine(ctx context.Context, token string, in domain.MedicineInput) (domain.Medicine, error) {
	var m domain.Medicine
	if err := c.send(ctx, token, http.MethodPost, "/stock/medicines", in, &m); err != nil {
		return domain.Medicine{}, fmt.Errorf("create medicine: %w", err)
	}
	return m, nil
}

func (c *Client) UpdateMedicine(ctx context.Context, token string, id int64, in domain.MedicineInput) (domain.Medicine, error) {
	var m domain.Medicine
	if err := c.send(ctx, token, http.MethodPut, fmt.Sprintf("/stock/medicines/%d", id), in, &m); err != nil {
		return domain.Medicine{}, fmt.Errorf("update medicine %d: %w", id, err)
	}
	return m, nil
}

// CreateSale submits a sale. It is never retried.
func (c *Client) CreateSale(ctx context.Context, token string, sale domain.SaleRequest) (domain.Sale, error) {
	var created domain.Sale
	if err := c.send(ctx, token, http.MethodPost, "/sales/create", sale, &created); err != nil {
		return domain.Sale{}, fmt.Errorf("create sale: %w", err)
	}
	return created, nil
}

// Invoice downloads the PDF invoice of a sale.
func (c *Client) Invoice(ctx context.Context, token string, saleID int64) ([]byte, error) {
	req, err := c.newRequest(ctx, token, http.MethodGet, fmt.Sprintf("/sales/%d/invoice", saleID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", saleID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("invoice %d: %w", saleID, readAPIError(resp))
	}
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", saleID, err)
	}
	return pdf, nil
}

func (c *Client) send(ctx context.Context, token, method, path string, body, dest any) error {
	req, err := c.newRequest(ctx, token, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) newRequest(ctx context.Context, token, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readAPIError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readAPIError extracts the backend's "detail" field. Validation errors carry
// a list of messages instead of a string.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Detail = strings.TrimSpace(string(raw))
		return apiErr
	}

	var detail string
	var items []struct {
		Msg string `json:"msg"`
	}
	switch {
	case json.Unmarshal(payload.Detail, &detail) == nil:
		apiErr.Detail = detail
	case json.Unmarshal(payload.Detail, &items) == nil:
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			msgs = append(msgs, it.Msg)
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	default:
		apiErr.Detail = payload.Error
	}
	return apiErr
}
