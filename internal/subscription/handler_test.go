package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
)

type MockService struct{ mock.Mock }

func (m *MockService) Cancel(ctx context.Context, id int64, actor auth.Actor) (*Subscription, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockService) ListForUser(ctx context.Context, userID int64) ([]Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Subscription), args.Error(1)
}

func (m *MockService) PendingRefunds(ctx context.Context) ([]Refund, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Refund), args.Error(1)
}

func (m *MockService) SettleTx(ctx context.Context, tx *sqlx.Tx, refund Refund) error {
	return m.Called(ctx, tx, refund).Error(0)
}

func (m *MockService) ExpireDue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func cancelRequest(svc Service, actor auth.Actor, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetActor(c, actor)
		c.Next()
	})
	r.POST("/api/subscriptions/:id/cancel", NewHandler(svc).Cancel)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
	return w
}

func TestCancelHandler(t *testing.T) {
	rider := auth.Actor{UserID: 20, Role: auth.RoleUser}

	tests := []struct {
		name   string
		target string
		setup  func(m *MockService)
		status int
		body   string
	}{
		{
			name:   "Pending",
			target: "/api/subscriptions/1/cancel",
			setup: func(m *MockService) {
				m.On("Cancel", mock.Anything, int64(1), rider).
					Return(&Subscription{ID: 1, UserID: 20, Status: StatusPendingCancellation}, nil)
			},
			status: http.StatusOK,
			body:   `"status":"pending_cancellation"`,
		},
		{
			name:   "Terminal",
			target: "/api/subscriptions/1/cancel",
			setup: func(m *MockService) {
				m.On("Cancel", mock.Anything, int64(1), rider).Return(nil, ErrAlreadyTerminal)
			},
			status: http.StatusConflict,
			body:   "ALREADY_TERMINAL",
		},
		{
			name:   "Not owner",
			target: "/api/subscriptions/1/cancel",
			setup: func(m *MockService) {
				m.On("Cancel", mock.Anything, int64(1), rider).Return(nil, ErrNotOwner)
			},
			status: http.StatusForbidden,
			body:   "FORBIDDEN",
		},
		{
			name:   "Bad id",
			target: "/api/subscriptions/zero/cancel",
			setup:  func(m *MockService) {},
			status: http.StatusBadRequest,
			body:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			w := cancelRequest(svc, rider, tt.target)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			svc.AssertExpectations(t)
		})
	}
}

func TestListMineAndExpireHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	svc.On("ListForUser", mock.Anything, int64(20)).
		Return([]Subscription{{ID: 1, UserID: 20, Status: StatusActive}}, nil)
	svc.On("ExpireDue", mock.Anything).Return(int64(3), nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetActor(c, auth.Actor{UserID: 20, Role: auth.RoleUser})
		c.Next()
	})
	h := NewHandler(svc)
	r.GET("/api/subscriptions", h.ListMine)
	r.POST("/api/admin/subscriptions/expire", h.ExpireDue)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/subscriptions/expire", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired":3}`, w.Body.String())

	svc.AssertExpectations(t)
}
