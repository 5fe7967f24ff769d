package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Lease is a deployment-wide mutual exclusion token held under one key.
// Only the owner that acquired it can renew or release it.
type Lease struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewLease binds a lease to key. The owner id is random per process.
func NewLease(c *redis.Client, key string, ttl time.Duration) *Lease {
	return &Lease{client: c, key: key, owner: uuid.NewString(), ttl: ttl}
}

func (l *Lease) Key() string        { return l.key }
func (l *Lease) Owner() string      { return l.owner }
func (l *Lease) TTL() time.Duration { return l.ttl }

// Acquire takes the lease if it is free or already ours.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return l.Renew(ctx)
}

// Renew extends the TTL; false means another process holds the lease.
func (l *Lease) Renew(ctx context.Context) (bool, error) {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release gives the lease up if we still hold it.
func (l *Lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
