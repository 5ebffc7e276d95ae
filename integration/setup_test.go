package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/db"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/refund"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/user"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

var (
	envOnce sync.Once
	env     testEnv
)

// testEnv is shared by every test in the package. Containers are started
// on first use and terminated in TestMain.
type testEnv struct {
	dsn      string
	redisURL string
	err      error
	cleanup  []func()
}

func TestMain(m *testing.M) {
	code := m.Run()
	for _, fn := range env.cleanup {
		fn()
	}
	os.Exit(code)
}

// startEnv uses TEST_DSN and TEST_REDIS_URL when set (CI), and
// testcontainers otherwise.
func startEnv() {
	env.dsn = os.Getenv("TEST_DSN")
	env.redisURL = os.Getenv("TEST_REDIS_URL")
	ctx := context.Background()

	if env.dsn == "" {
		pg, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("officexpress_test"),
			postgres.WithUsername("testuser"),
			postgres.WithPassword("testpass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			env.err = fmt.Errorf("start postgres container: %w", err)
			return
		}
		env.cleanup = append(env.cleanup, func() { _ = testcontainers.TerminateContainer(pg) })

		env.dsn, err = pg.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			env.err = err
			return
		}
	}

	if env.redisURL == "" {
		rc, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			env.err = fmt.Errorf("start redis container: %w", err)
			return
		}
		env.cleanup = append(env.cleanup, func() { _ = testcontainers.TerminateContainer(rc) })

		env.redisURL, err = rc.ConnectionString(ctx)
		if err != nil {
			env.err = err
		}
	}
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	envOnce.Do(startEnv)
	if env.err != nil {
		t.Skipf("Skipping integration tests: %v", env.err)
	}

	conn, err := db.Connect(env.dsn, db.PoolOptions{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Skipf("Skipping integration tests: cannot connect to test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn, "../migrations"))
	cleanDatabase(t, conn)
	return conn
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	envOnce.Do(startEnv)
	if env.err != nil {
		t.Skipf("Skipping integration tests: %v", env.err)
	}

	opt, err := redis.ParseURL(env.redisURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return rdb
}

func cleanDatabase(t *testing.T, conn *sqlx.DB) {
	tables := []string{
		"wallet_transactions",
		"wallets",
		"bookings",
		"trips",
		"subscriptions",
		"users",
	}
	for _, table := range tables {
		_, err := conn.Exec(fmt.Sprintf("DELETE FROM %s", table))
		require.NoError(t, err, "Failed to clean table "+table)
	}
}

func createUser(t *testing.T, conn *sqlx.DB, email, role string) int64 {
	var id int64
	err := conn.QueryRow(`
		INSERT INTO users (name, email, phone, role)
		VALUES ($1, $2, '01700000000', $3)
		RETURNING id
	`, "Rider "+email, email, role).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTrip(t *testing.T, conn *sqlx.DB, route string, departure time.Time) int64 {
	var id int64
	err := conn.QueryRow(`
		INSERT INTO trips (route_name, departure_at) VALUES ($1, $2) RETURNING id
	`, route, departure).Scan(&id)
	require.NoError(t, err)
	return id
}

func createBooking(t *testing.T, conn *sqlx.DB, tripID, userID int64, fare string) int64 {
	var id int64
	err := conn.QueryRow(`
		INSERT INTO bookings (trip_id, user_id, fare) VALUES ($1, $2, $3) RETURNING id
	`, tripID, userID, fare).Scan(&id)
	require.NoError(t, err)
	return id
}

func createSubscription(t *testing.T, conn *sqlx.DB, userID int64, fee string, periodStart time.Time) int64 {
	var id int64
	err := conn.QueryRow(`
		INSERT INTO subscriptions (user_id, route_id, time_slot_id, base_fee, billing_cycle_days, current_period_start)
		VALUES ($1, 1, 1, $2, 30, $3)
		RETURNING id
	`, userID, fee, periodStart).Scan(&id)
	require.NoError(t, err)
	return id
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (func(), error) { return func() {}, nil }

type noopNotifier struct{}

func (noopNotifier) NotifyRefund(context.Context, int64, ledger.Category, money.Amount, money.Amount) error {
	return nil
}

func (noopNotifier) NotifyAdjustment(context.Context, int64, money.Amount, money.Amount, string) error {
	return nil
}

// stack is the production object graph minus Redis.
type stack struct {
	ledger        *ledger.Repository
	wallets       wallet.Repository
	users         user.Repository
	bookings      booking.Service
	subscriptions subscription.Service
	refunds       refund.Service
}

func newStack(conn *sqlx.DB) *stack {
	runner := db.NewRunner(conn)
	l := ledger.NewRepository(conn)
	s := &stack{
		ledger:        l,
		wallets:       wallet.NewRepository(conn, l),
		users:         user.NewRepository(conn),
		bookings:      booking.NewService(booking.NewRepository(conn), runner),
		subscriptions: subscription.NewService(subscription.NewRepository(conn)),
	}
	s.refunds = refund.NewService(refund.Deps{
		Bookings:      s.bookings,
		Subscriptions: s.subscriptions,
		Wallets:       s.wallets,
		Ledger:        l,
		Tx:            runner,
		Lock:          noopLock{},
		Notifier:      noopNotifier{},
	}, config.RefundConfig{Concurrency: 4, CandidateTimeout: 10 * time.Second})
	return s
}
