package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/adapter/storage"
	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/core/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryCatalog) {
	t.Helper()

	store := storage.NewMemoryAdapter()
	catalog := storage.NewMemoryCatalog()
	catalog.AddCustomer("c1")
	catalog.AddProduct("p1")

	logger := zap.NewNop()
	orders := service.NewOrderService(store, catalog, logger)
	inventory := service.NewInventoryService(store, catalog, logger, service.DefaultConfig())

	srv := httptest.NewServer(NewHTTPHandler(orders, inventory, logger).Routes())
	t.Cleanup(srv.Close)
	return srv, catalog
}

func do(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHTTP_OrderLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/inventory", StockRequest{ProductID: "p1", QuantityOnHand: 10, IsAvailableForSale: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 7})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order OrderResponse
	decode(t, resp, &order)
	assert.Equal(t, "active", order.Status)
	assert.NotEmpty(t, order.OrderNumber)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 5})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var rejection ErrorResponse
	decode(t, resp, &rejection)
	require.NotNil(t, rejection.Available)
	require.NotNil(t, rejection.Requested)
	assert.Equal(t, 3, *rejection.Available)
	assert.Equal(t, 5, *rejection.Requested)

	resp = do(t, http.MethodPut, srv.URL+"/api/orders/"+order.ID, UpdateOrderRequest{ProductID: "p1", Quantity: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/inventory/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail domain.Availability
	decode(t, resp, &avail)
	assert.Equal(t, 7, avail.QuantityOnHand)

	resp = do(t, http.MethodDelete, srv.URL+"/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &order)
	assert.Equal(t, "cancelled", order.Status)

	resp = do(t, http.MethodGet, srv.URL+"/api/inventory", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report domain.InventoryReport
	decode(t, resp, &report)
	assert.Equal(t, 1, report.TotalProducts)
	assert.Equal(t, 10, report.Items[0].QuantityOnHand)
}

func TestHTTP_InventoryAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/inventory", StockRequest{ProductID: "p1", QuantityOnHand: 2, IsAvailableForSale: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/inventory", StockRequest{ProductID: "p1", QuantityOnHand: 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/inventory/p1", StockRequest{QuantityOnHand: 20, IsAvailableForSale: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var avail domain.Availability
	decode(t, resp, &avail)
	assert.Equal(t, 20, avail.QuantityOnHand)
	assert.False(t, avail.IsAvailableForSale)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/inventory/p1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/inventory/p1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/orders", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{CustomerID: "c1", ProductID: "p1", Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{ProductID: "p1", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/orders", CreateOrderRequest{CustomerID: "ghost", ProductID: "p1", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewNotFound("order", "x"), http.StatusNotFound},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.NewInsufficientStock("p", 2, 1), http.StatusConflict},
		{domain.NewNotAvailableForSale("p", 2, 1), http.StatusConflict},
		{fmt.Errorf("order x: %w", domain.ErrAlreadyCancelled), http.StatusConflict},
		{storage.ErrOptimisticLock, http.StatusConflict},
		{domain.ErrDuplicateRequest, http.StatusConflict},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
