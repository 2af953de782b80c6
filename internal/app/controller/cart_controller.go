package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/websocket"
)

type CartController struct {
	cartService service.CartService
	hub         *websocket.Hub
	upgrader    *gorilla.Upgrader
}

func NewCartController(cartService service.CartService, hub *websocket.Hub, upgrader *gorilla.Upgrader) *CartController {
	return &CartController{
		cartService: cartService,
		hub:         hub,
		upgrader:    upgrader,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity"`
}

func cartLineID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid cart item ID")
		return 0, false
	}
	return uint(id), true
}

func (ctrl *CartController) respondWithCart(c *gin.Context, status int, owner session.Identity) {
	view, err := ctrl.cartService.List(c.Request.Context(), owner)
	if err != nil {
		respondServiceError(c, err, "cart")
		return
	}
	c.JSON(status, view)
}

// GetCart returns the active identity's cart with live totals
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	ctrl.respondWithCart(c, http.StatusOK, session.FromContext(c))
}

// AddToCart adds a product; quantity defaults to 1
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	owner := session.FromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"owner": owner.String(),
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if err := ctrl.cartService.Add(c.Request.Context(), owner, req.ProductID, req.Quantity); err != nil {
		respondServiceError(c, err, "cart")
		return
	}
	ctrl.respondWithCart(c, http.StatusCreated, owner)
}

// UpdateCartItem sets a line's quantity. Zero is rejected; use DELETE.
// PUT /api/v1/cart/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	owner := session.FromContext(c)
	lineID, ok := cartLineID(c)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	if err := ctrl.cartService.SetQuantity(c.Request.Context(), owner, lineID, req.Quantity); err != nil {
		respondServiceError(c, err, "cart item")
		return
	}
	ctrl.respondWithCart(c, http.StatusOK, owner)
}

// RemoveCartItem deletes a line
// DELETE /api/v1/cart/:id
func (ctrl *CartController) RemoveCartItem(c *gin.Context) {
	owner := session.FromContext(c)
	lineID, ok := cartLineID(c)
	if !ok {
		return
	}

	if err := ctrl.cartService.Remove(c.Request.Context(), owner, lineID); err != nil {
		respondServiceError(c, err, "cart item")
		return
	}
	ctrl.respondWithCart(c, http.StatusOK, owner)
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	owner := session.FromContext(c)
	if err := ctrl.cartService.Clear(c.Request.Context(), owner); err != nil {
		respondServiceError(c, err, "cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// Stream upgrades to a WebSocket carrying cart_changed events for every
// device of the owner
// GET /api/v1/cart/ws
func (ctrl *CartController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	owner := session.FromContext(c)
	if !owner.IsKnown() {
		respondServiceError(c, service.ErrIdentityUnknown, "cart")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"owner": owner.String(),
			"error": err.Error(),
		})
		return
	}

	ctrl.hub.Attach(conn, owner.Key())
	log.Debug("Cart stream attached", map[string]interface{}{
		"owner": owner.String(),
	})
}
