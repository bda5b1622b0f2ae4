package handlers

import (
	"net/http"

	"storefront-backend/middleware"
	"storefront-backend/models"
	"storefront-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartHandler is the HTTP surface of the cart engine. Mutating routes check
// that the target cart belongs to the caller before delegating.
type CartHandler struct {
	Carts *services.CartService
}

func (h *CartHandler) CreateCart(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, err := h.Carts.CreateCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) GetMyCart(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cart, err := h.Carts.GetUserCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	cartID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"productId" binding:"required"`
		Quantity  int       `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.Carts.AddItem(c.Request.Context(), cartID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cartID, ok := h.authorize(c)
	if !ok {
		return
	}

	productID, err := parseUUIDParam(c, "productId")
	if err != nil {
		respondError(c, err)
		return
	}

	cart, err := h.Carts.RemoveItem(c.Request.Context(), cartID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) DeleteCart(c *gin.Context) {
	cartID, ok := h.authorize(c)
	if !ok {
		return
	}

	cart, err := h.Carts.DeleteCart(c.Request.Context(), cartID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// authorize resolves the :id cart from the path and verifies the caller owns
// it. On failure the response has been written and ok is false.
func (h *CartHandler) authorize(c *gin.Context) (uuid.UUID, bool) {
	callerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, false
	}

	cartID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}

	var own *models.Cart
	own, err = h.Carts.GetUserCart(c.Request.Context(), callerID)
	if err != nil && !services.IsNotFound(err) {
		respondError(c, err)
		return uuid.Nil, false
	}

	if err := services.EnsureCartOwner(callerID, own, cartID); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return cartID, true
}
