package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/husma-donation-api/internal/models"
)

const cartNamespace = "husma:cart:"

// ErrCartNotFound is returned when no cart exists for a session key.
var ErrCartNotFound = errors.New("cart not found")

// RedisCartRepository keeps carts as whole JSON documents with a sliding TTL.
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartRepository constructs a Redis backed cart store.
func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCartRepository{client: client, ttl: ttl}
}

// Get loads the cart for key.
func (r *RedisCartRepository) Get(ctx context.Context, key string) (*models.Cart, error) {
	raw, err := r.client.Get(ctx, cartNamespace+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = make(map[int]int)
	}
	return &cart, nil
}

// Save replaces the stored cart and refreshes its TTL.
func (r *RedisCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartNamespace+cart.Key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete drops the cart for key.
func (r *RedisCartRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cartNamespace+key).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

// MemoryCartRepository is the in-process cart store used when Redis is off.
type MemoryCartRepository struct {
	mu    sync.Mutex
	ttl   time.Duration
	carts map[string]memoryCart
	now   func() time.Time
}

type memoryCart struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryCartRepository constructs an in-memory cart store.
func NewMemoryCartRepository(ttl time.Duration) *MemoryCartRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryCartRepository{ttl: ttl, carts: make(map[string]memoryCart), now: time.Now}
}

// Get returns a private copy of the cart for key.
func (r *MemoryCartRepository) Get(_ context.Context, key string) (*models.Cart, error) {
	r.mu.Lock()
	entry, ok := r.carts[key]
	if ok && r.now().After(entry.expiresAt) {
		delete(r.carts, key)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrCartNotFound
	}

	var cart models.Cart
	if err := json.Unmarshal(entry.payload, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = make(map[int]int)
	}
	return &cart, nil
}

// Save stores a copy of cart and refreshes its expiry.
func (r *MemoryCartRepository) Save(_ context.Context, cart *models.Cart) error {
	cart.UpdatedAt = r.now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	r.mu.Lock()
	r.carts[cart.Key] = memoryCart{payload: payload, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return nil
}

// Delete drops the cart for key.
func (r *MemoryCartRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.carts, key)
	r.mu.Unlock()
	return nil
}
