package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "user", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// Register creates a regular account. The very first account ever
// registered becomes the admin; the user count and insert share one
// transaction with the users table locked, so two concurrent first
// registrations cannot both be promoted.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.create(ctx, email, password, name, "")
}

// RegisterAdmin creates an admin account. Callers must already be admins.
func (s *UserService) RegisterAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.create(ctx, email, password, name, models.RoleAdmin)
}

// Authenticate checks credentials. Unknown email and wrong password give the
// same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &UnauthorizedError{Message: "invalid credentials"}
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, &UnauthorizedError{Message: "invalid credentials"}
	}
	return &user, nil
}

func (s *UserService) create(ctx context.Context, email, password, name, role string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:    normalizeEmail(email),
		Password: string(hashed),
		Name:     strings.TrimSpace(name),
		Role:     role,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("failed to lock users table: %w", err)
			}
		}

		var sameEmail int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&sameEmail).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if sameEmail > 0 {
			return &ConflictError{Message: "email already registered"}
		}

		if user.Role == "" {
			var total int64
			if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
				return fmt.Errorf("failed to count users: %w", err)
			}
			user.Role = models.RoleUser
			if total == 0 {
				user.Role = models.RoleAdmin
			}
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ConflictError{Message: "email already registered"}
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("user registered")
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
