package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// appendScript inserts an attempt only when its key is absent.
// KEYS: loads hash, timeline zset, customers set.
// ARGV: load id, encoded attempt, timeline score, customer id.
var appendScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[4])
return 1
`)

// RedisBackend implements Backend on a standalone Redis server.
//
// Each customer owns a hash of encoded attempts keyed by load id and a sorted
// set of load ids scored by occurrence time in microseconds. A set of customer
// ids backs Totals. Range reads use the sorted set as a coarse index and then
// filter the decoded attempts exactly, so precision of the score never decides
// window membership.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisPrefix sets the key prefix. Default: "loadgate:ledger".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisBackend) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

// RedisBackendConfig configures a Redis backend built from connection settings.
type RedisBackendConfig struct {
	Address     string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// NewRedisBackend wraps an existing client. The backend takes ownership of
// the client and closes it in Close.
//
// Only standalone Redis is supported. The append script touches a
// customer's keys and the shared customers set, which hash to different
// slots, so it fails on Redis Cluster.
func NewRedisBackend(rdb *redis.Client, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{
		rdb:    rdb,
		prefix: "loadgate:ledger",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisBackendWithConfig dials Redis and verifies the connection.
func NewRedisBackendWithConfig(ctx context.Context, cfg RedisBackendConfig) (*RedisBackend, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Address, err)
	}

	return NewRedisBackend(rdb, WithRedisPrefix(cfg.Prefix)), nil
}

func (r *RedisBackend) loadsKey(customerID string) string {
	return fmt.Sprintf("%s:{%s}:loads", r.prefix, customerID)
}

func (r *RedisBackend) timelineKey(customerID string) string {
	return fmt.Sprintf("%s:{%s}:timeline", r.prefix, customerID)
}

func (r *RedisBackend) customersKey() string {
	return r.prefix + ":customers"
}

// Exists reports whether an attempt with the given key has been recorded.
func (r *RedisBackend) Exists(ctx context.Context, loadID string, customerID string) (bool, error) {
	ok, err := r.rdb.HExists(ctx, r.loadsKey(customerID), loadID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check attempt: %w", err)
	}
	return ok, nil
}

// SumAmount returns the exact sum of attempt amounts matching the query.
func (r *RedisBackend) SumAmount(ctx context.Context, q WindowQuery) (decimal.Decimal, error) {
	attempts, err := r.scan(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, a := range attempts {
		sum = sum.Add(a.Amount)
	}
	return sum, nil
}

// CountAttempts returns the number of attempts matching the query.
func (r *RedisBackend) CountAttempts(ctx context.Context, q WindowQuery) (int64, error) {
	attempts, err := r.scan(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(attempts)), nil
}

// Append records a new attempt atomically.
func (r *RedisBackend) Append(ctx context.Context, attempt *LoadAttempt) error {
	if err := validateAttempt(attempt); err != nil {
		return err
	}

	stored := *attempt
	if stored.RecordedAt.IsZero() {
		stored.RecordedAt = r.now().UTC()
	}

	payload, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}

	keys := []string{r.loadsKey(stored.CustomerID), r.timelineKey(stored.CustomerID), r.customersKey()}
	score := strconv.FormatInt(stored.OccurredAt.UnixMicro(), 10)

	inserted, err := appendScript.Run(ctx, r.rdb, keys, stored.LoadID, payload, score, stored.CustomerID).Int()
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	if inserted == 0 {
		return ErrDuplicateKey
	}
	return nil
}

// Get returns the attempt with the given key.
func (r *RedisBackend) Get(ctx context.Context, loadID string, customerID string) (*LoadAttempt, error) {
	raw, err := r.rdb.HGet(ctx, r.loadsKey(customerID), loadID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	return decodeAttempt(raw)
}

// List returns the attempts matching the query ordered by OccurredAt.
func (r *RedisBackend) List(ctx context.Context, q WindowQuery) ([]*LoadAttempt, error) {
	return r.scan(ctx, q)
}

// Totals aggregates every customer's attempts in [start, end].
func (r *RedisBackend) Totals(ctx context.Context, start, end time.Time) (Totals, error) {
	customers, err := r.rdb.SMembers(ctx, r.customersKey()).Result()
	if err != nil {
		return Totals{}, fmt.Errorf("failed to list customers: %w", err)
	}

	totals := Totals{AcceptedAmount: decimal.Zero}
	for _, customerID := range customers {
		attempts, err := r.scan(ctx, WindowQuery{CustomerID: customerID, Start: start, End: end})
		if err != nil {
			return Totals{}, err
		}
		if len(attempts) == 0 {
			continue
		}
		totals.Customers++
		for _, a := range attempts {
			totals.Attempts++
			if a.Accepted {
				totals.Accepted++
				totals.AcceptedAmount = totals.AcceptedAmount.Add(a.Amount)
			}
		}
	}
	return totals, nil
}

// Ping verifies the Redis connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}

// scan returns the decoded attempts matching q, ordered by OccurredAt.
func (r *RedisBackend) scan(ctx context.Context, q WindowQuery) ([]*LoadAttempt, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, r.timelineKey(q.CustomerID), &redis.ZRangeBy{
		Min: strconv.FormatInt(microFloor(q.Start), 10),
		Max: strconv.FormatInt(microCeil(q.End), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range timeline: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := r.rdb.HMGet(ctx, r.loadsKey(q.CustomerID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	attempts := make([]*LoadAttempt, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("timeline references missing load %s", ids[i])
		}
		a, err := decodeAttempt(raw)
		if err != nil {
			return nil, err
		}
		if q.Matches(a) {
			attempts = append(attempts, a)
		}
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].OccurredAt.Before(attempts[j].OccurredAt)
	})
	return attempts, nil
}

func decodeAttempt(raw string) (*LoadAttempt, error) {
	var a LoadAttempt
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("failed to decode attempt: %w", err)
	}
	return &a, nil
}

// microFloor and microCeil widen a nanosecond bound by one microsecond on
// each side so the coarse range never excludes a matching attempt.
func microFloor(t time.Time) int64 {
	return t.UnixMicro() - 1
}

func microCeil(t time.Time) int64 {
	return t.UnixMicro() + 1
}
