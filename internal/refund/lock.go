package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
)

const batchLockKey = "refunds:batch:lock"

var ErrBatchRunning = apperr.New(apperr.CodeConflict, "a refund batch is already running")

// Only the owner may delete the key; an expired lock taken over by another
// batch must survive our release.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker keeps two batches from overlapping.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type BatchLock struct {
	rdb      *redis.Client
	ttl      time.Duration
	newToken func() string
}

func NewBatchLock(rdb *redis.Client, ttl time.Duration) *BatchLock {
	return &BatchLock{rdb: rdb, ttl: ttl, newToken: uuid.NewString}
}

func (l *BatchLock) Acquire(ctx context.Context) (func(), error) {
	token := l.newToken()
	ok, err := l.rdb.SetNX(ctx, batchLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire refund batch lock: %w", err)
	}
	if !ok {
		return nil, ErrBatchRunning
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{batchLockKey}, token).Err(); err != nil {
			logger.Warn("failed to release refund batch lock", "error", err)
		}
	}
	return release, nil
}
