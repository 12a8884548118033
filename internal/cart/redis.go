package cart

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore keeps session carts and wizards in Redis with a key prefix and
// a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) cartKey(sid string) string {
	return fmt.Sprintf("%s:cart:%s", s.prefix, sid)
}

func (s *RedisStore) wizardKey(sid string) string {
	return fmt.Sprintf("%s:wizard:%s", s.prefix, sid)
}

func (s *RedisStore) get(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "cart: redis get")
	}
	return errors.Wrap(json.Unmarshal(data, out), "cart: decode session state")
}

func (s *RedisStore) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cart: encode session state")
	}
	return errors.Wrap(s.client.Set(ctx, key, data, SessionTTL).Err(), "cart: redis set")
}

func (s *RedisStore) GetCart(ctx context.Context, sid string) (*domain.Cart, error) {
	var c domain.Cart
	if err := s.get(ctx, s.cartKey(sid), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) SaveCart(ctx context.Context, sid string, cart *domain.Cart) error {
	return s.set(ctx, s.cartKey(sid), cart)
}

func (s *RedisStore) DeleteCart(ctx context.Context, sid string) error {
	return errors.Wrap(s.client.Del(ctx, s.cartKey(sid)).Err(), "cart: redis del")
}

func (s *RedisStore) GetWizard(ctx context.Context, sid string) (*checkout.Wizard, error) {
	var w checkout.Wizard
	if err := s.get(ctx, s.wizardKey(sid), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *RedisStore) SaveWizard(ctx context.Context, sid string, w *checkout.Wizard) error {
	return s.set(ctx, s.wizardKey(sid), w)
}

func (s *RedisStore) DeleteWizard(ctx context.Context, sid string) error {
	return errors.Wrap(s.client.Del(ctx, s.wizardKey(sid)).Err(), "cart: redis del")
}
