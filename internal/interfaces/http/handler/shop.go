package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

// OrderPusher sends a freshly placed order to the ERP
type OrderPusher interface {
	Push(ctx context.Context, orderID int64)
}

// ShopHandler serves hooks called by the storefront
type ShopHandler struct {
	BaseHandler
	pusher OrderPusher
	// dispatch runs work after the response is written
	dispatch func(func())
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(pusher OrderPusher) *ShopHandler {
	return &ShopHandler{
		pusher:   pusher,
		dispatch: func(fn func()) { go fn() },
	}
}

// OrderPlaced is the post-checkout hook. The push runs in the background and
// never fails the checkout, so the answer is always 202.
// POST /shop/orders/:id/placed
func (h *ShopHandler) OrderPlaced(c *gin.Context) {
	raw := c.Param("id")
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && orderID > 0 {
		ctx := context.WithoutCancel(c.Request.Context())
		h.dispatch(func() { h.pusher.Push(ctx, orderID) })
	}
	h.Accepted(c, gin.H{"shop_order_id": raw})
}
