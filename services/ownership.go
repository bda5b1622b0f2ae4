package services

import (
	"storefront-backend/models"

	"github.com/google/uuid"
)

// EnsureCartOwner decides whether callerID may mutate targetCartID, given
// ownCart, the cart returned for the caller by GetUserCart. It is a pure
// comparison: nil ownCart (caller has no cart) never matches.
func EnsureCartOwner(callerID uuid.UUID, ownCart *models.Cart, targetCartID uuid.UUID) error {
	if ownCart == nil || ownCart.UserID != callerID || ownCart.ID != targetCartID {
		return &ForbiddenMutationError{CallerID: callerID, CartID: targetCartID}
	}
	return nil
}
