package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/user"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockContacts struct {
	mock.Mock
}

func (m *MockContacts) FindByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func newTestService(rdb *redis.Client, contacts Contacts) *Service {
	s := New(rdb, contacts, SMTPConfig{
		From:     "noreply@officexpress.com",
		FromName: "OfficeXpress",
		Host:     "smtp.test.com",
		Port:     "587",
	})
	s.retryDelay = 0
	return s
}

func queuedJob(t *testing.T, tries int) string {
	data, err := json.Marshal(Job{
		To:      "rahim@example.com",
		Name:    "Rahim",
		Kind:    KindRefund,
		Subject: "Refund",
		Body:    "body",
		Tries:   tries,
		Created: time.Now(),
	})
	require.NoError(t, err)
	return string(data)
}

func TestSend(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, nil)

	err := svc.Send(context.Background(), KindRefund, "user@example.com", "User", "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestSendError(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush("emails", `.*`).SetErr(assert.AnError)

	svc := newTestService(db, nil)

	err := svc.Send(context.Background(), KindRefund, "user@example.com", "User", "Hello", "Test body")
	assert.Error(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestNotifyRefund(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	contacts := new(MockContacts)
	contacts.On("FindByID", mock.Anything, int64(20)).
		Return(&user.User{ID: 20, Name: "Rahim", Email: "rahim@example.com"}, nil)

	svc := newTestService(db, contacts)

	err := svc.NotifyRefund(context.Background(), 20, ledger.CategoryTripCancellation,
		money.MustParse("500"), money.MustParse("750.5"))
	assert.NoError(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet())
	contacts.AssertExpectations(t)
}

func TestNotifyRefund_UnknownUser(t *testing.T) {
	db, rmock := redismock.NewClientMock()

	contacts := new(MockContacts)
	contacts.On("FindByID", mock.Anything, int64(99)).Return(nil, user.ErrUserNotFound)

	svc := newTestService(db, contacts)

	err := svc.NotifyRefund(context.Background(), 99, ledger.CategoryMissedService,
		money.MustParse("350"), money.MustParse("350"))
	assert.True(t, errors.Is(err, user.ErrUserNotFound))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestNotifyAdjustment_Debit(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	contacts := new(MockContacts)
	contacts.On("FindByID", mock.Anything, int64(7)).
		Return(&user.User{ID: 7, Name: "Karim", Email: "karim@example.com"}, nil)

	svc := newTestService(db, contacts)

	err := svc.NotifyAdjustment(context.Background(), 7, money.MustParse("-40"), money.MustParse("60"), "duplicate booking charge")
	assert.NoError(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestDescribeCategory(t *testing.T) {
	assert.Equal(t, "missed service", describeCategory(ledger.CategoryMissedService))
	assert.True(t, strings.HasPrefix(describeCategory(ledger.CategorySubscriptionCancellation), "subscription"))
	assert.Equal(t, "admin_reset", describeCategory(ledger.CategoryAdminReset))
}

func TestProcessNext_Sent(t *testing.T) {
	metrics.EmailsSentTotal.Reset()
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetVal([]string{"emails", queuedJob(t, 0)})

	svc := newTestService(db, nil)
	var delivered []Job
	svc.send = func(j Job) error {
		delivered = append(delivered, j)
		return nil
	}

	svc.processNext(context.Background())

	require.Len(t, delivered, 1)
	assert.Equal(t, 1, delivered[0].Tries)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EmailsSentTotal.WithLabelValues(KindRefund, "sent")))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestProcessNext_RequeuesOnFailure(t *testing.T) {
	metrics.EmailsSentTotal.Reset()
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetVal([]string{"emails", queuedJob(t, 0)})
	rmock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, nil)
	svc.send = func(Job) error { return errors.New("connection refused") }

	svc.processNext(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EmailsSentTotal.WithLabelValues(KindRefund, "retry")))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestProcessNext_MovesToFailedQueue(t *testing.T) {
	metrics.EmailsSentTotal.Reset()
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetVal([]string{"emails", queuedJob(t, maxTries-1)})
	rmock.Regexp().ExpectLPush("emails:failed", `.*`).SetVal(1)

	svc := newTestService(db, nil)
	svc.send = func(Job) error { return errors.New("mailbox unavailable") }

	svc.processNext(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EmailsSentTotal.WithLabelValues(KindRefund, "failed")))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestProcessNext_Malformed(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetVal([]string{"emails", "{not json"})

	svc := newTestService(db, nil)
	svc.send = func(Job) error {
		t.Fatal("malformed job must not be delivered")
		return nil
	}

	svc.processNext(context.Background())
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectLLen("emails").SetVal(5)

	svc := newTestService(db, nil)

	length, err := svc.QueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), length)
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.EmailQueueLength))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestQueueLength_RedisDown(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectLLen("emails").SetErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))

	svc := newTestService(db, nil)

	_, err := svc.QueueLength(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestProcessNext_BacksOffWhenRedisDown(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))

	svc := newTestService(db, nil)
	svc.pollBackoff = 50 * time.Millisecond
	svc.send = func(Job) error {
		t.Fatal("nothing was popped")
		return nil
	}
	before := testutil.ToFloat64(metrics.EmailQueueErrorsTotal)

	start := time.Now()
	svc.processNext(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), svc.pollBackoff)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.EmailQueueErrorsTotal))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestProcessNext_EmptyQueueDoesNotBackOff(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").RedisNil()

	svc := newTestService(db, nil)
	svc.pollBackoff = time.Hour
	before := testutil.ToFloat64(metrics.EmailQueueErrorsTotal)

	done := make(chan struct{})
	go func() {
		svc.processNext(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle poll must return without backing off")
	}
	assert.Equal(t, before, testutil.ToFloat64(metrics.EmailQueueErrorsTotal))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestStart_StopsDuringBackoff(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	rmock.ExpectBRPop(popTimeout, "emails").SetErr(errors.New("connection refused"))

	svc := newTestService(db, nil)
	svc.pollBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop while backing off")
	}
}
