package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/httpapi"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/repository"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCatalog is an in-process port.ProductCatalog.
type memoryCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{products: make(map[uuid.UUID]domain.Product)}
}

func (c *memoryCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var products []domain.Product
	for _, p := range c.products {
		products = append(products, p)
	}
	return products, nil
}

func (c *memoryCatalog) GetProduct(_ context.Context, id uuid.UUID) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, port.ErrProductNotFound
	}
	return p, nil
}

func (c *memoryCatalog) SaveProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	c.products[p.ID] = p
	return p, nil
}

func (c *memoryCatalog) DeleteProduct(_ context.Context, id uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.products[id]
	delete(c.products, id)
	return ok, nil
}

// switchableStorage fails every Save while broken is set.
type switchableStorage struct {
	port.CartStorage

	mu     sync.Mutex
	broken bool
}

func (s *switchableStorage) Save(ctx context.Context, ownerID string, items []domain.LineItem) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()

	if broken {
		return errors.New("disk full")
	}
	return s.CartStorage.Save(ctx, ownerID, items)
}

func (s *switchableStorage) setBroken(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = v
}

type cartResponse struct {
	OwnerID string `json:"ownerId"`
	Items   []struct {
		Name           string `json:"name"`
		Price          string `json:"price"`
		Quantity       int    `json:"quantity"`
		PendingRemoval bool   `json:"pendingRemoval"`
	} `json:"items"`
	TotalPrice    string `json:"totalPrice"`
	Currency      string `json:"currency"`
	TotalQuantity int    `json:"totalQuantity"`
}

type productResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Tag   string `json:"tag"`
}

type fixture struct {
	handler  http.Handler
	storage  *switchableStorage
	sessions *session.Manager
	logHook  *test.Hook
}

func newFixture(t *testing.T, removalDelay time.Duration) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	storage := &switchableStorage{CartStorage: repository.NewMemoryCart()}
	sessions := session.NewManager(storage, removalDelay, session.WithLogger(logger))
	t.Cleanup(sessions.CloseAll)

	return &fixture{
		handler:  httpapi.NewServer(sessions, newMemoryCatalog(), logger).Handler(),
		storage:  storage,
		sessions: sessions,
		logHook:  hook,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}

	return rec.Code
}

func (f *fixture) createProduct(t *testing.T, name, price string) productResponse {
	t.Helper()

	var created productResponse
	status := f.do(t, http.MethodPost, "/products", map[string]string{
		"name":  name,
		"price": price,
		"tag":   gofakeit.ProductCategory(),
		"image": gofakeit.URL(),
	}, &created)
	require.Equal(t, http.StatusCreated, status)

	return created
}

func TestServer_CartFlow(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	b := f.createProduct(t, "B", "5")

	var view cartResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, &view))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, &view))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": b.ID}, &view))

	assert.Equal(t, "25.00", view.TotalPrice)
	assert.Equal(t, "THB", view.Currency)
	assert.Equal(t, 3, view.TotalQuantity)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "A", view.Items[0].Name)
	assert.Equal(t, 2, view.Items[0].Quantity)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, owner+"/items/A/decrease", nil, &view))
	assert.Equal(t, "15.00", view.TotalPrice)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, owner+"/items/B/increase", nil, &view))
	assert.Equal(t, 3, view.TotalQuantity)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, owner, nil, &view))
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.TotalPrice)
	assert.Zero(t, view.TotalQuantity)
}

func TestServer_DeferredRemoval(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	b := f.createProduct(t, "B", "5")
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, nil)
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": b.ID}, nil)

	var view cartResponse
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodDelete, owner+"/items/A", nil, &view))
	require.Len(t, view.Items, 2)
	assert.True(t, view.Items[0].PendingRemoval)
	assert.False(t, view.Items[1].PendingRemoval)
	assert.Equal(t, "15.00", view.TotalPrice)

	require.Eventually(t, func() bool {
		var current cartResponse
		f.do(t, http.MethodGet, owner, nil, &current)
		return len(current.Items) == 1 && current.Items[0].Name == "B"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_CancelRemoval(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, nil)

	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodDelete, owner+"/items/A", nil, nil))

	var view cartResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, owner+"/items/A/pending", nil, &view))
	require.Len(t, view.Items, 1)
	assert.False(t, view.Items[0].PendingRemoval)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, owner+"/items/A/pending", nil, nil))
}

func TestServer_RemoveRejectsMissingAndRepeated(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, owner+"/items/missing", nil, nil))
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodDelete, owner+"/items/A", nil, nil))
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, owner+"/items/A", nil, nil))

	// the missing name armed nothing
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, owner+"/items/missing/pending", nil, nil))
}

func TestServer_ViewTotalsMatchItemsDuringRemovals(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	owner := "/carts/" + gofakeit.UUID()

	for i := range 20 {
		p := f.createProduct(t, fmt.Sprintf("item-%d", i), "1.25")
		f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": p.ID}, nil)
	}

	for i := range 20 {
		f.do(t, http.MethodDelete, fmt.Sprintf("%s/items/item-%d", owner, i), nil, nil)

		var view cartResponse
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, owner, nil, &view))

		sum := decimal.Zero
		quantity := 0
		for _, item := range view.Items {
			sum = sum.Add(decimal.RequireFromString(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
			quantity += item.Quantity
		}
		assert.Equal(t, sum.StringFixed(2), view.TotalPrice)
		assert.Equal(t, quantity, view.TotalQuantity)
	}
}

func TestServer_PersistenceFailure(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, nil)

	f.storage.setBroken(true)

	var errResp map[string]string
	require.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, owner+"/items/A/increase", nil, &errResp))
	assert.NotEmpty(t, errResp["error"])

	f.storage.setBroken(false)

	var view cartResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, owner, nil, &view))
	assert.Equal(t, 1, view.TotalQuantity)

	var logged bool
	for _, entry := range f.logHook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestServer_AddItemErrors(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "unknown product",
			body:       map[string]string{"productId": gofakeit.UUID()},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed product id",
			body:       map[string]string{"productId": "nope"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       []int{1, 2},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, f.do(t, http.MethodPost, owner+"/items", tt.body, nil))
		})
	}
}

func TestServer_ProductAdmin(t *testing.T) {
	f := newFixture(t, time.Hour)

	created := f.createProduct(t, "Lamp", "129.50")
	assert.Equal(t, "129.5", created.Price)

	var updated productResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/products/"+created.ID, map[string]string{
		"name":  "Lamp",
		"price": "99",
		"tag":   "sale",
	}, &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "99", updated.Price)
	assert.Equal(t, "sale", updated.Tag)

	var listed []productResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/products", nil, &listed))
	require.Len(t, listed, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/products", map[string]string{"price": "1"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/products/not-a-uuid", nil, nil))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/products/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/products/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/products/"+created.ID, nil, nil))
}

func TestServer_CatalogEditDoesNotChangeCart(t *testing.T) {
	f := newFixture(t, time.Hour)
	owner := "/carts/" + gofakeit.UUID()

	a := f.createProduct(t, "A", "10")
	f.do(t, http.MethodPost, owner+"/items", map[string]string{"productId": a.ID}, nil)

	f.do(t, http.MethodPut, "/products/"+a.ID, map[string]string{"name": "A", "price": "99"}, nil)

	var view cartResponse
	f.do(t, http.MethodGet, owner, nil, &view)
	assert.Equal(t, "10.00", view.TotalPrice)
}

func TestServer_Healthz(t *testing.T) {
	f := newFixture(t, time.Hour)

	var body map[string]string
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
