package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	guestCartPrefix = "guest_cart:"

	maxUpdateAttempts = 5
)

// ErrGuestCartContended is returned when an Update keeps losing to
// concurrent writers of the same namespace.
var ErrGuestCartContended = errors.New("guest cart is being modified concurrently")

// GuestCartUpdate maps the current lines to the lines to store.
type GuestCartUpdate func(lines []model.GuestCartLine) ([]model.GuestCartLine, error)

// GuestCartStorage holds guest cart lines under a device token namespace.
// Stored lines are unique by product.
type GuestCartStorage interface {
	Read(ctx context.Context, token string) ([]model.GuestCartLine, error)
	Write(ctx context.Context, token string, lines []model.GuestCartLine) error
	// Update applies fn atomically with respect to other writers of token.
	// An error from fn aborts the update and is returned as is.
	Update(ctx context.Context, token string, fn GuestCartUpdate) error
	Clear(ctx context.Context, token string) error
}

// uniqueLines collapses repeated products into their first position, keeping
// the latest quantity.
func uniqueLines(lines []model.GuestCartLine) []model.GuestCartLine {
	index := make(map[uint]int, len(lines))
	out := make([]model.GuestCartLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity = l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

func decodeLines(raw []byte) []model.GuestCartLine {
	var lines []model.GuestCartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		// a corrupt namespace is treated as empty rather than blocking the device
		logger.Warn("Discarding unreadable guest cart", map[string]interface{}{
			"error": err.Error(),
		})
		return []model.GuestCartLine{}
	}
	return lines
}

type RedisGuestCartStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuestCartStorage(client *redis.Client, ttl time.Duration) *RedisGuestCartStorage {
	return &RedisGuestCartStorage{client: client, ttl: ttl}
}

func guestCartKey(token string) string {
	return guestCartPrefix + token
}

func (s *RedisGuestCartStorage) Read(ctx context.Context, token string) ([]model.GuestCartLine, error) {
	raw, err := s.client.Get(ctx, guestCartKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.GuestCartLine{}, nil
	}
	if err != nil {
		logger.Error("Failed to read guest cart", err)
		return nil, fmt.Errorf("read guest cart: %w", err)
	}

	return decodeLines(raw), nil
}

// Write replaces the namespace and refreshes its TTL. An empty cart deletes it.
func (s *RedisGuestCartStorage) Write(ctx context.Context, token string, lines []model.GuestCartLine) error {
	if len(lines) == 0 {
		return s.Clear(ctx, token)
	}

	raw, err := json.Marshal(uniqueLines(lines))
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, guestCartKey(token), raw, s.ttl).Err(); err != nil {
		logger.Error("Failed to write guest cart", err, map[string]interface{}{
			"lines": len(lines),
		})
		return fmt.Errorf("write guest cart: %w", err)
	}
	return nil
}

// Update runs fn inside a WATCH transaction on the namespace key and retries
// when another writer commits first.
func (s *RedisGuestCartStorage) Update(ctx context.Context, token string, fn GuestCartUpdate) error {
	key := guestCartKey(token)
	txf := func(tx *redis.Tx) error {
		current := []model.GuestCartLine{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("read guest cart: %w", err)
		default:
			current = decodeLines(raw)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next = uniqueLines(next)

		var payload []byte
		if len(next) > 0 {
			if payload, err = json.Marshal(next); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if err := s.client.Watch(ctx, txf, key); !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	logger.Warn("Guest cart update kept conflicting", map[string]interface{}{
		"attempts": maxUpdateAttempts,
	})
	return ErrGuestCartContended
}

func (s *RedisGuestCartStorage) Clear(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, guestCartKey(token)).Err(); err != nil {
		logger.Error("Failed to clear guest cart", err)
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

// MemoryGuestCartStorage is a process-local GuestCartStorage without expiry.
type MemoryGuestCartStorage struct {
	mu    sync.Mutex
	carts map[string][]model.GuestCartLine
}

func NewMemoryGuestCartStorage() *MemoryGuestCartStorage {
	return &MemoryGuestCartStorage{carts: make(map[string][]model.GuestCartLine)}
}

func (s *MemoryGuestCartStorage) Read(_ context.Context, token string) ([]model.GuestCartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GuestCartLine{}, s.carts[token]...), nil
}

func (s *MemoryGuestCartStorage) Write(_ context.Context, token string, lines []model.GuestCartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(lines) == 0 {
		delete(s.carts, token)
		return nil
	}
	s.carts[token] = uniqueLines(lines)
	return nil
}

func (s *MemoryGuestCartStorage) Update(_ context.Context, token string, fn GuestCartUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(append([]model.GuestCartLine{}, s.carts[token]...))
	if err != nil {
		return err
	}
	if len(next) == 0 {
		delete(s.carts, token)
		return nil
	}
	s.carts[token] = uniqueLines(next)
	return nil
}

func (s *MemoryGuestCartStorage) Clear(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
	return nil
}
