package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStore is the read side of the catalog consumed by the cart engine.
type ProductStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
}

type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Image       string
}

// ProductPatch carries a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *string
}

type ProductService struct {
	DB *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{DB: db}
}

func (s *ProductService) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "product", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &product, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.DB.WithContext(ctx).Where("category = ?", category).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products by category: %w", err)
	}
	return products, nil
}

// Search matches query case-insensitively against name and description.
func (s *ProductService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "q", Message: "is required"}
	}

	pattern := "%" + strings.ToLower(query) + "%"
	products := []models.Product{}
	if err := s.DB.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("created_at ASC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in.Name, in.Description, in.Category, in.Price, in.Stock); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       in.Image,
	}
	if err := s.DB.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	var product *models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "product", ID: id.String()}
			}
			return fmt.Errorf("failed to fetch product: %w", err)
		}

		applyPatch(&existing, patch)
		if err := validateProduct(existing.Name, existing.Description, existing.Category, existing.Price, existing.Stock); err != nil {
			return err
		}

		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		product = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product and returns it. Products still sitting in a cart
// are refused so cart totals keep pointing at real prices.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "product", ID: id.String()}
			}
			return fmt.Errorf("failed to fetch product: %w", err)
		}

		var inCarts int64
		if err := tx.Model(&models.CartItem{}).Where("product_id = ?", id).Count(&inCarts).Error; err != nil {
			return fmt.Errorf("failed to check cart references: %w", err)
		}
		if inCarts > 0 {
			return &ConflictError{Message: fmt.Sprintf("product %s is in %d cart(s) and cannot be deleted", id, inCarts)}
		}

		if err := tx.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func applyPatch(p *models.Product, patch ProductPatch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
}

func validateProduct(name, description, category string, price decimal.Decimal, stock int) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case strings.TrimSpace(description) == "":
		return &ValidationError{Field: "description", Message: "is required"}
	case strings.TrimSpace(category) == "":
		return &ValidationError{Field: "category", Message: "is required"}
	case price.IsNegative():
		return &ValidationError{Field: "price", Message: "must not be negative"}
	case stock < 0:
		return &ValidationError{Field: "stock", Message: "must not be negative"}
	}
	return nil
}
