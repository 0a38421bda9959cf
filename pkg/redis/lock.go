package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out single-holder locks across processes (SET NX PX)
type Locker struct {
	client *Client
	prefix string
}

// NewLocker creates a new locker
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// releaseScript deletes the key only if we still own it
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire tries to take the named lock for ttl.
// It returns ok=false when another holder has it. With Redis disabled the lock is always granted.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	if !l.client.Enabled() {
		return func() {}, true, nil
	}

	key := fmt.Sprintf("%s:lock:%s", l.prefix, name)
	token := uuid.NewString()

	ok, err = l.client.Redis().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// 호출자의 ctx가 이미 취소됐을 수 있으므로 별도 context 사용
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client.Redis(), []string{key}, token).Err()
	}

	return release, true, nil
}
