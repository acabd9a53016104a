package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guest carts live in Redis as a hash of variant id to quantity, keyed by the
// opaque token the client presents. Every write refreshes the TTL; a cart
// untouched for the full window simply disappears.
const guestCartTTL = 7 * 24 * time.Hour

type GuestStore struct {
	rdb *redis.Client
}

func NewGuestStore(rdb *redis.Client) *GuestStore {
	return &GuestStore{rdb: rdb}
}

func guestKey(token string) string {
	return "guest_cart:" + token
}

func (s *GuestStore) Add(ctx context.Context, token, variantID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	key := guestKey(token)

	if err := s.rdb.HIncrBy(ctx, key, variantID, int64(quantity)).Err(); err != nil {
		return fmt.Errorf("guest cart add: %w", err)
	}
	return s.rdb.Expire(ctx, key, guestCartTTL).Err()
}

func (s *GuestStore) Update(ctx context.Context, token, variantID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	key := guestKey(token)

	exists, err := s.rdb.HExists(ctx, key, variantID).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrCartItemNotFound
	}

	if err := s.rdb.HSet(ctx, key, variantID, quantity).Err(); err != nil {
		return fmt.Errorf("guest cart update: %w", err)
	}
	return s.rdb.Expire(ctx, key, guestCartTTL).Err()
}

func (s *GuestStore) Remove(ctx context.Context, token, variantID string) error {
	removed, err := s.rdb.HDel(ctx, guestKey(token), variantID).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *GuestStore) Items(ctx context.Context, token string) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, guestKey(token)).Result()
	if err != nil {
		return nil, err
	}

	items := make(map[string]int, len(raw))
	for variantID, qty := range raw {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("corrupt guest cart entry %s: %w", variantID, err)
		}
		items[variantID] = n
	}
	return items, nil
}

func (s *GuestStore) Clear(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, guestKey(token)).Err()
}
