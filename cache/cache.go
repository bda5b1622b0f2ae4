package cache

import (
	"context"
	"errors"

	"storefront-backend/models"

	"github.com/google/uuid"
)

var ErrCacheMiss = errors.New("cart cache miss")

// CartCache holds a user's assembled cart, keyed by the owning user.
//
// Every user has a generation counter that Delete advances. Readers take the
// generation before loading from the database and hand it back to Set, which
// stores the cart only while the generation is unchanged. A load that raced a
// mutation is therefore never written.
type CartCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Generation(ctx context.Context, userID uuid.UUID) (int64, error)
	// Set reports whether the cart was stored.
	Set(ctx context.Context, cart *models.Cart, generation int64) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// NoopCache is used when no Redis is configured; every read misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (*models.Cart, error)   { return nil, ErrCacheMiss }
func (NoopCache) Generation(context.Context, uuid.UUID) (int64, error)   { return 0, nil }
func (NoopCache) Set(context.Context, *models.Cart, int64) (bool, error) { return false, nil }
func (NoopCache) Delete(context.Context, uuid.UUID) error                { return nil }
