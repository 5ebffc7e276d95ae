package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/adjustment"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/refund"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/server"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

const jwtSecret = "integration-secret"

func newRouter(t *testing.T, s *stack, conn server.Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Port:      "0",
		JWTSecret: jwtSecret,
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
	}
	srv := server.New(cfg, conn, nil, server.Handlers{
		Wallet:       wallet.NewHandler(s.wallets),
		Adjustment:   adjustment.NewHandler(adjustment.NewService(s.wallets, noopNotifier{})),
		Refund:       refund.NewHandler(s.refunds),
		Subscription: subscription.NewHandler(s.subscriptions),
		Booking:      booking.NewHandler(s.bookings),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv.Router()
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminWalletFlow_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn)
	router := newRouter(t, s, conn)

	adminID := createUser(t, conn, "admin@test.com", auth.RoleAdmin)
	riderID := createUser(t, conn, "rider@test.com", auth.RoleUser)
	adminToken, err := auth.GenerateAccessToken(adminID, "admin@test.com", auth.RoleAdmin, jwtSecret)
	require.NoError(t, err)
	riderToken, err := auth.GenerateAccessToken(riderID, "rider@test.com", auth.RoleUser, jwtSecret)
	require.NoError(t, err)

	// The rider's first wallet read creates it.
	w := do(t, router, http.MethodGet, "/api/wallet", riderToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var mine struct {
		ID      int64  `json:"id"`
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, "0.00", mine.Balance)

	adjustPath := fmt.Sprintf("/api/admin/wallets/%d/adjust", mine.ID)

	w = do(t, router, http.MethodPost, adjustPath, riderToken, map[string]any{
		"type": "credit", "amount": "10.00", "reason": "not allowed",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodPost, adjustPath, adminToken, map[string]any{
		"type": "credit", "amount": "150.00", "reason": "goodwill credit",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, adjustPath, adminToken, map[string]any{
		"type": "debit", "amount": "200.00", "reason": "fare correction",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var problem struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Attempted string `json:"attempted"`
				Available string `json:"available"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "INSUFFICIENT_FUNDS", problem.Error.Code)
	assert.Equal(t, "150.00", problem.Error.Details.Available)

	w = do(t, router, http.MethodPost, fmt.Sprintf("/api/admin/wallets/%d/reset", mine.ID), adminToken, map[string]any{
		"reason": "account closed by request",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/admin/wallets/%d/reconcile", mine.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec wallet.Reconciliation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.True(t, rec.Consistent)
	assert.Equal(t, 2, rec.TransactionCount)
}

func TestAdminRefundFlow_Integration(t *testing.T) {
	conn := setupTestDB(t)
	s := newStack(conn)
	router := newRouter(t, s, conn)

	adminID := createUser(t, conn, "ops@test.com", auth.RoleAdmin)
	adminToken, err := auth.GenerateAccessToken(adminID, "ops@test.com", auth.RoleAdmin, jwtSecret)
	require.NoError(t, err)

	tripID := createTrip(t, conn, "Dhanmondi - Banani", time.Now().Add(6*time.Hour))
	createBooking(t, conn, tripID, createUser(t, conn, "p1@test.com", auth.RoleUser), "95.00")

	w := do(t, router, http.MethodPost, fmt.Sprintf("/api/admin/trips/%d/cancel", tripID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/admin/refunds/process", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch refund.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, 1, batch.Processed)
	assert.Equal(t, "95.00", batch.TotalAmount.String())

	w = do(t, router, http.MethodGet, "/api/admin/refunds/history?type=trip_cancellation", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dhanmondi - Banani")

	w = do(t, router, http.MethodGet, "/api/admin/refunds/history?type=admin_adjustment", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
