package uniqueness

import (
	"context"
	"fmt"
	"strings"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the taken-value sets.
const DefaultPrefix = "formwizard:taken:"

// RedisChecker treats a Redis set per field as the registry of taken values.
// Values are compared case-insensitively.
type RedisChecker struct {
	client *backend.Client
	prefix string
}

var _ Checker = (*RedisChecker)(nil)

// RedisOption configures a RedisChecker.
type RedisOption func(*RedisChecker)

// WithPrefix sets the key prefix for the per-field sets.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisChecker) {
		c.prefix = prefix
	}
}

// NewRedis connects to address.
func NewRedis(address, password string, db int, opts ...RedisOption) *RedisChecker {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient builds a checker on an existing client.
func NewFromClient(client *backend.Client, opts ...RedisOption) *RedisChecker {
	c := &RedisChecker{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisChecker) key(field string) string {
	return c.prefix + field
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Available implements Checker.
func (c *RedisChecker) Available(ctx context.Context, field, value string) (bool, error) {
	value = normalize(value)
	if value == "" {
		return false, ErrEmptyValue
	}
	taken, err := c.client.SIsMember(ctx, c.key(field), value).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return !taken, nil
}

// Reserve marks values as taken for field.
func (c *RedisChecker) Reserve(ctx context.Context, field string, values ...string) error {
	members := make([]any, 0, len(values))
	for _, v := range values {
		if v = normalize(v); v != "" {
			members = append(members, v)
		}
	}
	if len(members) == 0 {
		return nil
	}
	if err := c.client.SAdd(ctx, c.key(field), members...).Err(); err != nil {
		return fmt.Errorf("uniqueness: reserve %s: %w", field, err)
	}
	return nil
}

// Release frees a value again.
func (c *RedisChecker) Release(ctx context.Context, field, value string) error {
	if err := c.client.SRem(ctx, c.key(field), normalize(value)).Err(); err != nil {
		return fmt.Errorf("uniqueness: release %s: %w", field, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisChecker) Close() error {
	return c.client.Close()
}
