package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/config"
	"github.com/iliyamo/rentdesk/internal/database/dbtest"
	"github.com/iliyamo/rentdesk/internal/handler"
	"github.com/iliyamo/rentdesk/internal/metrics"
	"github.com/iliyamo/rentdesk/internal/middleware"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/router"
	"github.com/iliyamo/rentdesk/internal/sequence"
	"github.com/iliyamo/rentdesk/internal/tenant"
	"github.com/iliyamo/rentdesk/internal/utils"
)

const (
	secret = "router-test-secret"
	admin  = "admin-token"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := dbtest.Open(t)
	tenants := repository.NewTenantRepo(db)
	items := repository.NewItemRepo(db)
	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)
	invoices := repository.NewInvoiceRepo(db)
	plans := repository.NewPricingPlanRepo(db)
	w := booking.NewWriter(booking.Deps{
		DB: db, Tenants: tenants, Items: items, Customers: customers,
		Bookings: bookings, Invoices: invoices, Plans: plans,
		Numbers:     sequence.NewInvoiceNumberer(sequence.NewGenerator(repository.NewSequenceRepo(db)), "INV"),
		LockTimeout: 5 * time.Second,
	})
	e := router.New(router.Handlers{
		Bookings:  handler.NewBookingHandler(w, bookings, invoices),
		Items:     handler.NewItemHandler(items, plans, bookings, w.Resolver()),
		Customers: handler.NewCustomerHandler(customers),
		Invoices:  handler.NewInvoiceHandler(invoices),
		Tenants:   handler.NewTenantHandler(tenants, admin),
	}, router.Options{
		JWTSecret: secret,
		Resolver:  tenant.Bound{Host: tenant.SubdomainResolver{Dir: tenants}},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Metrics:   metrics.New("rentdesk-test", prometheus.NewRegistry()),
		DB:        db,
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path, tok string, body any, hdr ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) want(rec *httptest.ResponseRecorder, code int, out any) {
	a.t.Helper()
	if rec.Code != code {
		a.t.Fatalf("status %d, want %d: %s", rec.Code, code, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
}

func (a *api) onboard(sub string) string {
	a.t.Helper()
	var created struct {
		ID uint64 `json:"id"`
	}
	rec := a.do(http.MethodPost, "/v1/tenants", "", map[string]any{"name": sub + " rentals", "subdomain": sub}, handler.AdminTokenHeader, admin)
	a.want(rec, http.StatusCreated, &created)
	tok, err := utils.NewAccessToken(secret, "owner@"+sub, tenant.ID(created.ID), middleware.RoleOwner, time.Hour)
	if err != nil {
		a.t.Fatal(err)
	}
	return tok.Token
}

type idBody struct {
	ID uint64 `json:"id"`
}

func (a *api) item(tok, price string) uint64 {
	a.t.Helper()
	var it idBody
	a.want(a.do(http.MethodPost, "/v1/items", tok, map[string]any{
		"type": "vehicle", "name": "Van", "base_price": price, "attributes": map[string]any{"seats": 9},
	}), http.StatusCreated, &it)
	return it.ID
}

func (a *api) customer(tok, key string) uint64 {
	a.t.Helper()
	var c idBody
	a.want(a.do(http.MethodPost, "/v1/customers", tok, map[string]any{
		"natural_key": key, "name": "Ana", "email": "ana@example.com",
	}), http.StatusCreated, &c)
	return c.ID
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	tok := a.onboard("acme")
	item := a.item(tok, "50")
	cust := a.customer(tok, "C-1")

	var b struct {
		ID         uint64 `json:"id"`
		Status     string `json:"status"`
		TotalPrice string `json:"total_price"`
		StartDate  string `json:"start_date"`
	}
	a.want(a.do(http.MethodPost, "/v1/bookings", tok, map[string]any{
		"item_id": item, "customer_id": cust, "start_date": "2025-06-01", "end_date": "2025-06-05",
	}), http.StatusCreated, &b)
	if b.Status != "PENDING" || b.TotalPrice != "200" || b.StartDate != "2025-06-01" {
		t.Fatalf("booking %+v", b)
	}

	var conflict struct {
		Error     string `json:"error"`
		Conflicts []struct {
			ID        uint64 `json:"id"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"conflicts"`
	}
	a.want(a.do(http.MethodPost, "/v1/bookings", tok, map[string]any{
		"item_id": item, "customer_id": cust, "start_date": "2025-06-04", "end_date": "2025-06-08",
	}), http.StatusConflict, &conflict)
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != b.ID || conflict.Conflicts[0].EndDate != "2025-06-05" {
		t.Fatalf("conflict body %+v", conflict)
	}

	a.want(a.do(http.MethodPost, "/v1/bookings", tok, map[string]any{
		"item_id": item, "customer_id": cust, "start_date": "2025-06-08", "end_date": "2025-06-08",
	}), http.StatusBadRequest, nil)

	var avail struct {
		Available bool `json:"available"`
	}
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/availability?start=2025-06-03&end=2025-06-04", item), tok, nil), http.StatusOK, &avail)
	if avail.Available {
		t.Fatal("booked range reported available")
	}

	var confirmed struct {
		Booking struct {
			Status string `json:"status"`
		} `json:"booking"`
		Invoice struct {
			ID     uint64 `json:"id"`
			Number string `json:"number"`
			Amount string `json:"amount"`
		} `json:"invoice"`
	}
	path := fmt.Sprintf("/v1/bookings/%d", b.ID)
	a.want(a.do(http.MethodPost, path+"/confirm", tok, nil), http.StatusOK, &confirmed)
	wantNumber := fmt.Sprintf("INV-%d-0001", time.Now().UTC().Year())
	if confirmed.Booking.Status != "CONFIRMED" || confirmed.Invoice.Number != wantNumber || confirmed.Invoice.Amount != "200" {
		t.Fatalf("confirm %+v", confirmed)
	}
	first := confirmed.Invoice.ID
	a.want(a.do(http.MethodPost, path+"/confirm", tok, nil), http.StatusOK, &confirmed)
	if confirmed.Invoice.ID != first {
		t.Fatal("second confirm minted another invoice")
	}

	var inv struct {
		PaymentStatus string `json:"payment_status"`
	}
	a.want(a.do(http.MethodGet, path+"/invoice", tok, nil), http.StatusOK, &inv)
	a.want(a.do(http.MethodPost, fmt.Sprintf("/v1/invoices/%d/pay", first), tok, nil), http.StatusOK, &inv)
	if inv.PaymentStatus != "PAID" {
		t.Fatalf("invoice %+v", inv)
	}

	a.want(a.do(http.MethodPost, path+"/finish", tok, nil), http.StatusConflict, nil)
	a.want(a.do(http.MethodPost, path+"/cancel", tok, nil), http.StatusOK, &b)
	if b.Status != "CANCELLED" {
		t.Fatalf("status %s", b.Status)
	}
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/availability?start=2025-06-03&end=2025-06-04", item), tok, nil), http.StatusOK, &avail)
	if !avail.Available {
		t.Fatal("cancelled booking still blocks")
	}

	a.want(a.do(http.MethodDelete, fmt.Sprintf("/v1/items/%d", item), tok, nil), http.StatusConflict, nil)
}

func TestItemBookings(t *testing.T) {
	a := newAPI(t)
	tok := a.onboard("acme")
	van := a.item(tok, "50")
	bike := a.item(tok, "10")
	cust := a.customer(tok, "C-1")

	for _, r := range []struct {
		item       uint64
		start, end string
	}{
		{van, "2025-06-01", "2025-06-03"},
		{van, "2025-06-10", "2025-06-12"},
		{bike, "2025-06-01", "2025-06-02"},
	} {
		a.want(a.do(http.MethodPost, "/v1/bookings", tok, map[string]any{
			"item_id": r.item, "customer_id": cust, "start_date": r.start, "end_date": r.end,
		}), http.StatusCreated, nil)
	}

	var list []struct {
		ItemID uint64 `json:"item_id"`
		Status string `json:"status"`
	}
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/bookings", van), tok, nil), http.StatusOK, &list)
	if len(list) != 2 {
		t.Fatalf("got %d bookings, want 2", len(list))
	}
	for _, b := range list {
		if b.ItemID != van || b.Status != "PENDING" {
			t.Fatalf("unexpected booking %+v", b)
		}
	}

	// the path id wins over a query item_id
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/bookings?item_id=%d", bike, van), tok, nil), http.StatusOK, &list)
	if len(list) != 1 || list[0].ItemID != bike {
		t.Fatalf("bike bookings %+v", list)
	}
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/bookings?status=CONFIRMED", van), tok, nil), http.StatusOK, &list)
	if len(list) != 0 {
		t.Fatalf("confirmed filter %+v", list)
	}
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/bookings?status=bogus", van), tok, nil), http.StatusBadRequest, nil)
	a.want(a.do(http.MethodGet, "/v1/items/9999/bookings", tok, nil), http.StatusNotFound, nil)

	other := a.onboard("globex")
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d/bookings", van), other, nil), http.StatusNotFound, nil)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	a := newAPI(t)
	acme := a.onboard("acme")
	globex := a.onboard("globex")
	item := a.item(acme, "40")
	cust := a.customer(acme, "C-1")

	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items/%d", item), globex, nil), http.StatusNotFound, nil)
	a.want(a.do(http.MethodPost, "/v1/bookings", globex, map[string]any{
		"item_id": item, "customer_id": cust, "start_date": "2025-06-01", "end_date": "2025-06-02",
	}), http.StatusNotFound, nil)

	var list []idBody
	a.want(a.do(http.MethodGet, fmt.Sprintf("/v1/items?ids=%d", item), globex, nil), http.StatusOK, &list)
	if len(list) != 0 {
		t.Fatalf("foreign item listed: %+v", list)
	}

	// the same natural key is free in another tenant
	a.customer(globex, "C-1")
	a.want(a.do(http.MethodPost, "/v1/customers", acme, map[string]any{"natural_key": "C-1", "name": "Dup"}), http.StatusConflict, nil)
}

func (a *api) onHost(host, path, tok string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestTenantResolution(t *testing.T) {
	a := newAPI(t)
	acme := a.onboard("acme")
	globex := a.onboard("globex")
	item := a.item(acme, "50")
	path := fmt.Sprintf("/v1/items/%d", item)

	var current struct {
		Subdomain string `json:"subdomain"`
	}
	a.want(a.onHost("acme.rentdesk.test", "/v1/tenant", acme), http.StatusOK, &current)
	if current.Subdomain != "acme" {
		t.Fatalf("resolved %+v", current)
	}
	a.want(a.onHost("acme.rentdesk.test", path, acme), http.StatusOK, nil)

	// a token must carry its tenant; the host can only narrow it
	stranger, err := utils.NewAccessToken(secret, "stranger", 0, middleware.RoleOwner, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	a.want(a.onHost("acme.rentdesk.test", path, stranger.Token), http.StatusNotFound, nil)
	a.want(a.do(http.MethodGet, "/v1/tenant", stranger.Token, nil), http.StatusNotFound, nil)

	a.want(a.onHost("acme.rentdesk.test", path, globex), http.StatusNotFound, nil)
	a.want(a.onHost("ghost.rentdesk.test", "/v1/tenant", acme), http.StatusNotFound, nil)
}

func TestOnboardingRequiresAdminToken(t *testing.T) {
	a := newAPI(t)
	body := map[string]any{"name": "x", "subdomain": "x"}
	a.want(a.do(http.MethodPost, "/v1/tenants", "", body), http.StatusUnauthorized, nil)
	a.want(a.do(http.MethodPost, "/v1/tenants", "", body, handler.AdminTokenHeader, "wrong"), http.StatusUnauthorized, nil)
	a.want(a.do(http.MethodPost, "/v1/tenants", "", map[string]any{"name": "x"}, handler.AdminTokenHeader, admin), http.StatusBadRequest, nil)
	a.onboard("x")
	a.want(a.do(http.MethodPost, "/v1/tenants", "", body, handler.AdminTokenHeader, admin), http.StatusConflict, nil)
}

func TestPricingAndQuote(t *testing.T) {
	a := newAPI(t)
	tok := a.onboard("acme")
	item := a.item(tok, "50")

	a.want(a.do(http.MethodPut, fmt.Sprintf("/v1/items/%d/pricing", item), tok, map[string]any{
		"tiers": []map[string]any{{"min_days": 1, "max_days": 5, "rate": "50"}, {"min_days": 5, "rate": "40"}},
	}), http.StatusBadRequest, nil)

	a.want(a.do(http.MethodPut, fmt.Sprintf("/v1/items/%d/pricing", item), tok, map[string]any{
		"tiers": []map[string]any{{"min_days": 1, "max_days": 6, "rate": "50"}, {"min_days": 7, "rate": "35"}},
	}), http.StatusOK, nil)

	var q struct {
		Days  int `json:"days"`
		Quote struct {
			Total string `json:"total"`
		} `json:"quote"`
	}
	a.want(a.do(http.MethodPost, "/v1/quotes", tok, map[string]any{
		"item_id": item, "start_date": "2025-06-01", "end_date": "2025-06-08",
	}), http.StatusOK, &q)
	if q.Days != 7 || q.Quote.Total != "245" {
		t.Fatalf("quote %+v", q)
	}
}

func TestAuthAndOps(t *testing.T) {
	a := newAPI(t)
	a.want(a.do(http.MethodGet, "/v1/items", "", nil), http.StatusUnauthorized, nil)
	a.want(a.do(http.MethodGet, "/healthz", "", nil), http.StatusOK, nil)
	a.want(a.do(http.MethodGet, "/readyz", "", nil), http.StatusOK, nil)
	rec := a.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("metrics %d", rec.Code)
	}
}
