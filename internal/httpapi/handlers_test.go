package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockpos/backend/internal/domain"
	"stockpos/backend/internal/service"
	"stockpos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, "test-store", 18, 20)
	auth := NewAuthManager("test-secret-key", time.Hour, "739154", repo)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, api)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

// postJSON fires an authenticated, CSRF-carrying POST and returns the recorder.
func postJSON(t *testing.T, api *API, token string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := postJSON(t, api, token, "/api/v1/sales", domain.SaleCreateRequest{
		Customer: domain.Customer{Name: "Walk-in"},
		Items: []domain.SaleLineRequest{
			{ProductID: "prod-mug-01", Qty: 2},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if created.Sale.ID == "" || created.Sale.InvoiceNo == "" {
		t.Fatalf("expected sale id and invoice number, got %+v", created.Sale)
	}

	// Wrong PIN is rejected before the sale is touched.
	rec = postJSON(t, api, token, "/api/v1/sales/"+created.Sale.ID+"/void", domain.VoidSaleRequest{
		Reason:     "test",
		ManagerPIN: "000000",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong pin expected 403, got %d", rec.Code)
	}

	rec = postJSON(t, api, token, "/api/v1/sales/"+created.Sale.ID+"/void", domain.VoidSaleRequest{
		Reason:     "customer cancelled",
		ManagerPIN: "739154",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("void expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var voided domain.VoidSaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&voided); err != nil {
		t.Fatalf("decode void response: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided {
		t.Fatalf("expected voided status, got %s", voided.Status)
	}

	// A second void is a conflict.
	rec = postJSON(t, api, token, "/api/v1/sales/"+created.Sale.ID+"/void", domain.VoidSaleRequest{
		Reason:     "again",
		ManagerPIN: "739154",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double void expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSaleInsufficientStockReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := postJSON(t, api, token, "/api/v1/sales", domain.SaleCreateRequest{
		Customer: domain.Customer{Name: "Walk-in"},
		Items: []domain.SaleLineRequest{
			{ProductID: "prod-cap-01", Qty: 999},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestStockOverviewOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/overview", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var overview domain.StockOverview
	if err := json.NewDecoder(rec.Body).Decode(&overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if len(overview.Products) == 0 {
		t.Fatalf("expected seeded products in overview")
	}
}

func TestReorderSuggestionsForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(map[string]string{"username": "cashier", "password": "cashier123"})
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	api.Handler().ServeHTTP(loginRec, loginReq)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("cashier login failed: %d", loginRec.Code)
	}
	var loginResp domain.LoginResponse
	if err := json.NewDecoder(loginRec.Body).Decode(&loginResp); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/reorder-suggestions", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}
}
