package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// DefaultKey names the drain lease shared by all replicas.
const DefaultKey = "procurement:queue:drain-lease"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript resets the TTL only while the key still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lease is a cross-replica drain lease stored as a single Redis key with a TTL.
type Lease struct {
	client goredis.UniversalClient
	key    string
}

func NewLease(client goredis.UniversalClient, key string) *Lease {
	if key == "" {
		key = DefaultKey
	}
	return &Lease{client: client, key: key}
}

func (l *Lease) TryAcquire(ctx context.Context, ttl time.Duration) (ports.HeldLease, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("redis lease not configured")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &heldLease{lease: l, token: token}, true, nil
}

type heldLease struct {
	lease *Lease
	token string
}

func (h *heldLease) Renew(ctx context.Context, ttl time.Duration) (bool, error) {
	renewed, err := renewScript.Run(ctx, h.lease.client, []string{h.lease.key}, h.token, ttl.Milliseconds()).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("renew lease %s: %w", h.lease.key, err)
	}
	return renewed == 1, nil
}

func (h *heldLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, h.lease.client, []string{h.lease.key}, h.token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("release lease %s: %w", h.lease.key, err)
	}
	return nil
}

var _ ports.DrainLease = (*Lease)(nil)
