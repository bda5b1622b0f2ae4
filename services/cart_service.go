package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"storefront-backend/cache"
	"storefront-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartService owns cart lifecycle, item merging, stock checks and total
// recomputation. It works on cart and product ids only; deciding who may
// touch which cart is the caller's job (see EnsureCartOwner).
//
// Every mutation runs in one transaction that holds a row lock on the cart,
// so concurrent mutations of the same cart are serialized and the stored
// total always matches the committed items. Stock is only compared, never
// reserved: two different carts may both pass the check against the same
// stock figure.
type CartService struct {
	DB       *gorm.DB
	Products ProductStore
	Cache    cache.CartCache

	loads     singleflight.Group // collapses concurrent cache misses per user
	mutations atomic.Uint64      // bumped by invalidate; part of the flight key
}

// cartLoadTimeout bounds a collapsed load, which runs detached from the
// context of whichever caller started it.
const cartLoadTimeout = 5 * time.Second

func NewCartService(db *gorm.DB, products ProductStore, cartCache cache.CartCache) *CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	return &CartService{
		DB:       db,
		Products: products,
		Cache:    cartCache,
	}
}

// CreateCart creates an empty cart for userID. A user has at most one cart.
func (s *CartService) CreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{
		UserID: userID,
		Items:  []models.CartItem{},
		Total:  decimal.Zero,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Cart{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing cart: %w", err)
		}
		if existing > 0 {
			return &ConflictError{Message: "user already has a cart"}
		}

		if err := tx.Omit(clause.Associations).Create(&cart).Error; err != nil {
			// Lost a race with a concurrent create; the unique index on user_id decided.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{Message: "user already has a cart"}
			}
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)
	log.Info().Str("cart_id", cart.ID.String()).Str("user_id", userID.String()).Msg("cart created")
	return &cart, nil
}

// GetUserCart returns the cart owned by userID with items and products.
func (s *CartService) GetUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cached, err := s.Cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache get failed")
	}

	// The generation is read before loading so a mutation that commits while
	// the load is in flight makes the conditional Set a no-op.
	gen, err := s.Cache.Generation(ctx, userID)
	cacheable := err == nil
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache generation read failed")
	}

	// Callers arriving after a mutation never join a load that started before it.
	key := fmt.Sprintf("%s:%d:%d", userID, gen, s.mutations.Load())
	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()

		cart, err := loadCart(s.DB.WithContext(loadCtx), "user_id = ?", userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Entity: "cart for user", ID: userID.String()}
			}
			return nil, fmt.Errorf("failed to fetch cart: %w", err)
		}

		if cacheable {
			stored, err := s.Cache.Set(loadCtx, cart, gen)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache set failed")
			} else if !stored {
				log.Debug().Str("user_id", userID.String()).Msg("cart changed during load; not cached")
			}
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

// GetCart returns the cart with the given id, items and products included.
func (s *CartService) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := loadCart(s.DB.WithContext(ctx), "id = ?", cartID)
	if err != nil {
		return nil, cartLookupError(err, cartID)
	}
	return cart, nil
}

// AddItem puts quantity units of productID into the cart. Adding a product
// that is already in the cart increases that line's quantity.
func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	product, err := s.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.HasStock(quantity) {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	var updated *models.Cart
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, cartID)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		switch {
		case err == nil:
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:    cartID,
				ProductID: productID,
				Quantity:  quantity,
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
		default:
			return fmt.Errorf("failed to fetch cart item: %w", err)
		}

		updated, err = recomputeTotal(tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(updated.UserID)
	log.Debug().
		Str("cart_id", cartID.String()).
		Str("product_id", productID.String()).
		Int("quantity", quantity).
		Str("total", updated.Total.String()).
		Msg("cart item added")
	return updated, nil
}

// RemoveItem deletes the whole line for productID, whatever its quantity.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error) {
	var updated *models.Cart
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, cartID)
		if err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{
					Entity: "cart item",
					ID:     fmt.Sprintf("product %s in cart %s", productID, cartID),
				}
			}
			return fmt.Errorf("failed to fetch cart item: %w", err)
		}

		if err := tx.Delete(&item).Error; err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}

		updated, err = recomputeTotal(tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(updated.UserID)
	return updated, nil
}

// DeleteCart removes the cart and its items and returns the cart as it was
// just before deletion.
func (s *CartService) DeleteCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var snapshot *models.Cart
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, cartID)
		if err != nil {
			return err
		}
		if err := assembleItems(tx, cart); err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		if err := tx.Delete(&models.Cart{}, "id = ?", cartID).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}

		snapshot = cart
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(snapshot.UserID)
	log.Info().Str("cart_id", cartID.String()).Int("items", len(snapshot.Items)).Msg("cart deleted")
	return snapshot, nil
}

// invalidate drops the cached cart after a committed mutation and advances
// the user's cache generation. A failure is logged; the entry then expires
// with its TTL.
func (s *CartService) invalidate(userID uuid.UUID) {
	s.mutations.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Cache.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("cart cache invalidate failed")
	}
}

// recomputeTotal reloads the items of cart inside tx, stores the fresh sum
// of quantity*price and returns the populated cart.
func recomputeTotal(tx *gorm.DB, cart *models.Cart) (*models.Cart, error) {
	if err := assembleItems(tx, cart); err != nil {
		return nil, err
	}

	total := cart.ComputeTotal()
	now := time.Now()
	if err := tx.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Updates(map[string]interface{}{"total": total, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart total: %w", err)
	}

	cart.Total = total
	cart.UpdatedAt = now
	return cart, nil
}

func lockCart(tx *gorm.DB, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", cartID).First(&cart).Error; err != nil {
		return nil, cartLookupError(err, cartID)
	}
	return &cart, nil
}

func loadCart(db *gorm.DB, query string, args ...interface{}) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Where(query, args...).First(&cart).Error; err != nil {
		return nil, err
	}
	if err := assembleItems(db, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// assembleItems fills cart.Items with its lines and each line's product
// using two keyed queries.
func assembleItems(db *gorm.DB, cart *models.Cart) error {
	items := []models.CartItem{}
	if err := db.Where("cart_id = ?", cart.ID).Order("created_at ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("failed to fetch cart items: %w", err)
	}

	if len(items) > 0 {
		productIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			productIDs = append(productIDs, item.ProductID)
		}

		var products []models.Product
		if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return fmt.Errorf("failed to fetch cart products: %w", err)
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for i := range items {
			product, ok := byID[items[i].ProductID]
			if !ok {
				return fmt.Errorf("product %s referenced by cart item %s is missing", items[i].ProductID, items[i].ID)
			}
			items[i].Product = product
		}
	}

	cart.Items = items
	return nil
}

func cartLookupError(err error, cartID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "cart", ID: cartID.String()}
	}
	return fmt.Errorf("failed to fetch cart: %w", err)
}
