package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/jobberlab/internal/order/application"
	"github.com/davicafu/jobberlab/internal/order/domain"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/tests/mocks"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.InMemoryNotificationRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	notes := &mocks.InMemoryNotificationRepo{}
	notifications := application.NewNotificationService(notes, zap.NewNop())
	producer := sharedBus.NewProducer(&mocks.RecordingPublisher{}, nil, zap.NewNop())
	orders := application.NewOrderService(mocks.NewInMemoryOrderRepo(), notifications, producer, nil, "http://client", zap.NewNop())

	r := gin.New()
	RegisterOrderRoutes(r, NewOrderHandler(orders, notifications))
	return r, notes
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type orderResponse struct {
	Data domain.Order `json:"data"`
}

func TestOrderRoutes_Lifecycle(t *testing.T) {
	r, _ := setupRouter(t)

	rec := do(r, http.MethodPost, "/orders", map[string]any{
		"orderId": "o1", "sellerId": "s1", "buyerId": "b1", "sellerUsername": "alice", "buyerUsername": "bob", "price": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(r, http.MethodPut, "/orders/deliver-order/o1", map[string]any{"message": "done", "file": "f.zip"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPut, "/orders/cancel/o1", map[string]any{"sellerId": "s1", "buyerId": "b1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPut, "/orders/approve-order/o1", map[string]any{"sellerId": "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodGet, "/orders/o1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusCancelled, got.Data.Status)
	assert.Len(t, got.Data.DeliveredWork, 1)
}

func TestOrderRoutes_DeliveryDate(t *testing.T) {
	r, _ := setupRouter(t)
	do(r, http.MethodPost, "/orders", map[string]any{"orderId": "o1", "sellerId": "s1", "buyerId": "b1"})

	rec := do(r, http.MethodPut, "/orders/extension/o1", map[string]any{"originalDate": "a", "newDate": "b", "days": 2, "reason": "r"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPut, "/orders/gig/approve/o1", map[string]any{"newDate": "b", "days": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	var got orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Data.RequestExtension.IsEmpty())
	assert.Equal(t, "b", got.Data.Offer.NewDeliveryDate)

	rec = do(r, http.MethodPut, "/orders/gig/maybe/o1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderRoutes_NotFound(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/orders/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/orders/deliver-order/missing", map[string]any{}).Code)
}

func TestNotificationRoutes(t *testing.T) {
	r, notes := setupRouter(t)
	do(r, http.MethodPost, "/orders", map[string]any{"orderId": "o1", "sellerId": "s1", "buyerId": "b1", "sellerUsername": "alice"})
	require.Len(t, notes.Notifications, 1)

	rec := do(r, http.MethodGet, "/orders/notification/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []domain.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.False(t, list.Data[0].IsRead)

	rec = do(r, http.MethodPut, "/orders/notification/mark-as-read", map[string]any{"notificationId": list.Data[0].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, notes.Notifications[0].IsRead)

	rec = do(r, http.MethodPut, "/orders/notification/mark-as-read", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
