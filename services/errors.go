package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports a missing cart, cart item, product or user.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation such as a second cart for a user.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d, available %d)",
		e.ProductName, e.Requested, e.Available)
}

// ForbiddenMutationError is returned when a caller targets a cart they do not own.
type ForbiddenMutationError struct {
	CallerID uuid.UUID
	CartID   uuid.UUID
}

func (e *ForbiddenMutationError) Error() string {
	return "you may only modify your own cart"
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
