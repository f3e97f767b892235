package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	listSeen repository.ListParams
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context, params repository.ListParams) ([]*domain.Product, int, error) {
	m.listSeen = params
	products := []*domain.Product{}
	for _, product := range m.products {
		products = append(products, product)
	}
	return products, len(products), nil
}

func newCartTestRouter(t *testing.T) (*chi.Mux, *mockProductRepository) {
	t.Helper()

	productRepo := newMockProductRepository()
	carts := cart.NewManager(storage.NewMemoryKV(), "cart", zap.NewNop())
	handler := NewCartHandler(carts, productRepo, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, productRepo
}

func doCartRequest(t *testing.T, router http.Handler, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	var resp CartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode cart response: %v", err)
	}
	return resp
}

func profileCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == cartProfileCookie {
			return cookie
		}
	}
	return nil
}

func TestCartAddAndGet(t *testing.T) {
	router, productRepo := newCartTestRouter(t)

	product := &domain.Product{ID: uuid.New(), Title: "Widget", Price: 9.99}
	productRepo.products[product.ID] = product

	rec := doCartRequest(t, router, http.MethodPost, "/api/cart/items",
		AddItemRequest{ProductID: product.ID.String(), Quantity: 2}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeCart(t, rec)
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart: %+v", resp)
	}
	if resp.Total != 19.98 {
		t.Errorf("expected total 19.98, got %v", resp.Total)
	}

	cookie := profileCookie(rec)
	if cookie == nil {
		t.Fatal("expected cart profile cookie to be set")
	}

	// The same profile sees its cart again
	rec = doCartRequest(t, router, http.MethodGet, "/api/cart", nil, cookie)
	resp = decodeCart(t, rec)
	if len(resp.Items) != 1 {
		t.Errorf("expected cart to persist across requests, got %+v", resp)
	}

	// A fresh profile gets an empty cart
	rec = doCartRequest(t, router, http.MethodGet, "/api/cart", nil, nil)
	resp = decodeCart(t, rec)
	if len(resp.Items) != 0 || resp.Total != 0 {
		t.Errorf("expected empty cart for new profile, got %+v", resp)
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	router, _ := newCartTestRouter(t)

	rec := doCartRequest(t, router, http.MethodPost, "/api/cart/items",
		AddItemRequest{ProductID: uuid.New().String(), Quantity: 1}, nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCartAddInvalidBody(t *testing.T) {
	router, _ := newCartTestRouter(t)

	rec := doCartRequest(t, router, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "not-a-uuid"}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	router, productRepo := newCartTestRouter(t)

	product := &domain.Product{ID: uuid.New(), Title: "Widget", Price: 10}
	productRepo.products[product.ID] = product

	rec := doCartRequest(t, router, http.MethodPost, "/api/cart/items",
		AddItemRequest{ProductID: product.ID.String(), Quantity: 1}, nil)
	cookie := profileCookie(rec)

	rec = doCartRequest(t, router, http.MethodPut,
		fmt.Sprintf("/api/cart/items/%s", product.ID), UpdateItemRequest{Quantity: 4}, cookie)
	resp := decodeCart(t, rec)
	if resp.Items[0].Quantity != 4 || resp.Total != 40 {
		t.Errorf("expected quantity 4 total 40, got %+v", resp)
	}

	// Zero quantity removes the line
	rec = doCartRequest(t, router, http.MethodPut,
		fmt.Sprintf("/api/cart/items/%s", product.ID), UpdateItemRequest{Quantity: 0}, cookie)
	resp = decodeCart(t, rec)
	if len(resp.Items) != 0 {
		t.Errorf("expected line removed, got %+v", resp)
	}
}

func TestCartClear(t *testing.T) {
	router, productRepo := newCartTestRouter(t)

	product := &domain.Product{ID: uuid.New(), Title: "Widget", Price: 10}
	productRepo.products[product.ID] = product

	rec := doCartRequest(t, router, http.MethodPost, "/api/cart/items",
		AddItemRequest{ProductID: product.ID.String(), Quantity: 3}, nil)
	cookie := profileCookie(rec)

	rec = doCartRequest(t, router, http.MethodDelete, "/api/cart", nil, cookie)
	resp := decodeCart(t, rec)
	if len(resp.Items) != 0 || resp.Total != 0 {
		t.Errorf("expected empty cart after clear, got %+v", resp)
	}
}

func TestCartRemoveAbsentProductIsNoOp(t *testing.T) {
	router, _ := newCartTestRouter(t)

	rec := doCartRequest(t, router, http.MethodDelete,
		fmt.Sprintf("/api/cart/items/%s", uuid.New()), nil, nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for absent product, got %d", rec.Code)
	}
}
