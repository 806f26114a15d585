// README: End-to-end handler tests over the gin router with in-memory stores.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "harvest/internal/http"
	"harvest/internal/modules/catalog"
	"harvest/internal/modules/notification"
	"harvest/internal/modules/order"
	"harvest/internal/modules/transaction"
	"harvest/internal/types"
)

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)

	// Buyer places an order.
	code, body := env.do(t, http.MethodPost, "/api/orders", map[string]any{
		"product_id": "prod-7",
		"buyer_id":   "buyer-3",
		"quantity":   4,
	})
	require.Equal(t, http.StatusCreated, code, string(body))

	var created struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		ProductName string `json:"product_name"`
		PriceAmount int64  `json:"price_amount"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "Heirloom Tomatoes", created.ProductName)
	assert.Equal(t, int64(500), created.PriceAmount)

	// Farmer accepts; a pending settlement appears.
	code, body = env.do(t, http.MethodPost, "/api/orders/"+created.ID+"/accept", map[string]any{
		"farmer_id": "farmer-1",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = env.do(t, http.MethodGet, "/api/orders/"+created.ID+"/transaction", nil)
	require.Equal(t, http.StatusOK, code, string(body))

	var tx struct {
		ID                  string    `json:"id"`
		Status              string    `json:"status"`
		TerminationDeadline time.Time `json:"termination_deadline"`
	}
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Equal(t, "pending", tx.Status)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), tx.TerminationDeadline, time.Minute)

	// Both parties confirm the handover.
	code, body = env.do(t, http.MethodPost, "/api/transactions/"+tx.ID+"/confirm", map[string]any{
		"actor_id": "buyer-3",
		"role":     "buyer",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = env.do(t, http.MethodPost, "/api/transactions/"+tx.ID+"/confirm", map[string]any{
		"actor_id": "farmer-1",
		"role":     "farmer",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	var confirmed struct {
		Status    string `json:"status"`
		Completed bool   `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(body, &confirmed))
	assert.Equal(t, "completed", confirmed.Status)
	assert.True(t, confirmed.Completed)

	code, body = env.do(t, http.MethodGet, "/api/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var final struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &final))
	assert.Equal(t, "completed", final.Status)
}

func TestCancelThenAcceptOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)
	orderID := env.placeOrder(t)

	code, body := env.do(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", map[string]any{
		"actor_id": "buyer-3",
		"role":     "buyer",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	// Accept after cancel hits the state machine.
	code, _ = env.do(t, http.MethodPost, "/api/orders/"+orderID+"/accept", map[string]any{
		"farmer_id": "farmer-1",
	})
	assert.Equal(t, http.StatusConflict, code)
}

func TestHTTPErrorMapping(t *testing.T) {
	env := newAPITestEnv(t)
	orderID := env.placeOrder(t)

	t.Run("validation", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/orders", map[string]any{
			"product_id": "prod-7",
			"buyer_id":   "buyer-3",
			"quantity":   0,
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown product", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/orders", map[string]any{
			"product_id": "no-such-product",
			"buyer_id":   "buyer-3",
			"quantity":   1,
		})
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("order not found", func(t *testing.T) {
		code, _ := env.do(t, http.MethodGet, "/api/orders/missing", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("forbidden accept", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/orders/"+orderID+"/accept", map[string]any{
			"farmer_id": "someone-else",
		})
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("bad role", func(t *testing.T) {
		code, _ := env.do(t, http.MethodPost, "/api/orders/"+orderID+"/cancel", map[string]any{
			"actor_id": "buyer-3",
			"role":     "admin",
		})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("expired confirm", func(t *testing.T) {
		created := time.Now().Add(-49 * time.Hour)
		overdue := &transaction.Transaction{
			ID:                  types.NewID(),
			OrderID:             "order-overdue",
			FarmerID:            "farmer-1",
			BuyerID:             "buyer-3",
			Status:              transaction.StatusPending,
			CreatedAt:           created,
			TerminationDeadline: created.Add(transaction.SettlementWindow),
		}
		require.NoError(t, env.txStore.Create(context.Background(), overdue))

		code, _ := env.do(t, http.MethodPost, "/api/transactions/"+string(overdue.ID)+"/confirm", map[string]any{
			"actor_id": "buyer-3",
			"role":     "buyer",
		})
		assert.Equal(t, http.StatusGone, code)
	})
}

// ---- test environment ----

type apiTestEnv struct {
	router  *gin.Engine
	txStore *memTxStore
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orderStore := newMemOrderStore()
	txStore := newMemTxStore()
	notifier := nopNotifier{}

	orderSvc := order.NewService(orderStore, stubCatalog{}, notifier)
	txSvc := transaction.NewService(txStore, orderSvc, notifier, logger, time.Minute)
	orderSvc.SetSettlements(txSvc)

	return &apiTestEnv{
		router:  api.NewRouter(orderSvc, txSvc, logger),
		txStore: txStore,
	}
}

func (e *apiTestEnv) do(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (e *apiTestEnv) placeOrder(t *testing.T) string {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/api/orders", map[string]any{
		"product_id": "prod-7",
		"buyer_id":   "buyer-3",
		"quantity":   2,
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	return created.ID
}

type stubCatalog struct{}

func (stubCatalog) InvalidateProduct(context.Context, types.ID) {}

func (stubCatalog) Product(_ context.Context, id types.ID) (*catalog.Product, error) {
	if id != "prod-7" {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Product{
		ID:       "prod-7",
		FarmerID: "farmer-1",
		Name:     "Heirloom Tomatoes",
		Price:    types.Money{Amount: 500, Currency: "USD"},
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notification.Notification) {}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[types.ID]*order.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[types.ID]*order.Order)}
}

func (s *memOrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memOrderStore) Get(_ context.Context, id types.ID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memOrderStore) UpdateStatus(_ context.Context, id types.ID, from, to order.Status, declineReason *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	now := time.Now()
	switch to {
	case order.StatusAccepted:
		o.AcceptedAt = &now
	case order.StatusDeclined:
		o.DeclinedAt = &now
		o.DeclineReason = declineReason
	case order.StatusCompleted:
		o.CompletedAt = &now
	case order.StatusCancelled:
		o.CancelledAt = &now
	}
	return true, nil
}

func (s *memOrderStore) AppendEvent(context.Context, *order.Event) error { return nil }

type memTxStore struct {
	mu  sync.Mutex
	txs map[types.ID]*transaction.Transaction
}

func newMemTxStore() *memTxStore {
	return &memTxStore{txs: make(map[types.ID]*transaction.Transaction)}
}

func (s *memTxStore) Create(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.OrderID == t.OrderID {
			return transaction.ErrDuplicate
		}
	}
	cp := *t
	s.txs[t.ID] = &cp
	return nil
}

func (s *memTxStore) Get(_ context.Context, id types.ID) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTxStore) GetByOrder(_ context.Context, orderID types.ID) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.OrderID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, transaction.ErrNotFound
}

func (s *memTxStore) Confirm(_ context.Context, id types.ID, role types.Role, now time.Time) (*transaction.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.Status != transaction.StatusPending || !t.TerminationDeadline.After(now) {
		return nil, false, nil
	}
	if role == types.RoleFarmer {
		t.FarmerConfirmed = true
	} else {
		t.BuyerConfirmed = true
	}
	cp := *t
	return &cp, true, nil
}

func (s *memTxStore) Complete(_ context.Context, id types.ID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.Status != transaction.StatusPending || !t.FarmerConfirmed || !t.BuyerConfirmed {
		return false, nil
	}
	t.Status = transaction.StatusCompleted
	t.Completed = true
	t.CompletedAt = &now
	return true, nil
}

func (s *memTxStore) CancelByOrder(_ context.Context, orderID types.ID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.OrderID == orderID && t.Status == transaction.StatusPending {
			t.Status = transaction.StatusCancelled
			t.CancelledAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (s *memTxStore) TerminateDue(_ context.Context, now time.Time) ([]*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*transaction.Transaction
	for _, t := range s.txs {
		if t.Status == transaction.StatusPending && !t.TerminationDeadline.After(now) {
			t.Status = transaction.StatusTerminated
			t.Terminated = true
			at := now
			t.TerminatedAt = &at
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
