package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"channelmart/internal/domain"
	sourcerepo "channelmart/internal/repository/source"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries the services the routes delegate to. Interfaces keep the
// router testable with stubs.
type Deps struct {
	Catalog CatalogService
	Carts   CartService
	Orders  OrderService
	Sources SourceRepo
}

type CatalogService interface {
	RescanAll(ctx context.Context, channelID int64, progress func(done, total, ok, fail int)) (int, int, error)
	ListAvailable(ctx context.Context, channelID int64, postIDs []int, isUsed bool) ([]domain.Product, error)
}

type CartService interface {
	Add(ctx context.Context, buyerID int64, productID string, quantity int, kind domain.PriceKind) (*domain.Cart, error)
	Remove(ctx context.Context, buyerID int64, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, buyerID int64) error
	Items(ctx context.Context, buyerID int64) (*domain.Cart, error)
}

type OrderService interface {
	CreateFromCart(ctx context.Context, buyerID int64, buyerUsername string, kind domain.PriceKind) ([]*domain.Order, error)
	Decide(ctx context.Context, orderID string, moderatorID int64, approve bool) (*domain.Order, error)
	AttachProof(ctx context.Context, orderID, photoRef, proofText string) (*domain.Order, error)
	SkipProof(ctx context.Context, orderID string) (*domain.Order, error)
	ListPending(ctx context.Context) ([]domain.Order, error)
}

type SourceRepo interface {
	Upsert(ctx context.Context, in sourcerepo.UpsertInput) (*domain.MonitoredSource, error)
	Deactivate(ctx context.Context, channelID int64, postID int) error
	ListActive(ctx context.Context, channelID int64) ([]domain.MonitoredSource, error)
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

func (h *handlers) rescan(c *gin.Context) {
	channelID, _ := strconv.ParseInt(c.Query("channel_id"), 10, 64)
	ok, fail, err := h.deps.Catalog.RescanAll(c.Request.Context(), channelID, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok, "fail": fail})
}

func (h *handlers) listProducts(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Query("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id required"})
		return
	}
	isUsed := c.Query("used") == "true"

	var postIDs []int
	if raw := c.Query("post_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post_ids"})
				return
			}
			postIDs = append(postIDs, id)
		}
	}

	products, err := h.deps.Catalog.ListAvailable(c.Request.Context(), channelID, postIDs, isUsed)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *handlers) listSources(c *gin.Context) {
	channelID, _ := strconv.ParseInt(c.Query("channel_id"), 10, 64)
	sources, err := h.deps.Sources.ListActive(c.Request.Context(), channelID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

type upsertSourceRequest struct {
	ChannelID int64  `json:"channelId" binding:"required"`
	PostID    int    `json:"postId" binding:"required"`
	Category  string `json:"category"`
	IsUsed    bool   `json:"isUsed"`
	PriceKind string `json:"priceKind" binding:"required"`
}

func (h *handlers) upsertSource(c *gin.Context) {
	var req upsertSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := domain.PriceKind(req.PriceKind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priceKind must be retail or wholesale"})
		return
	}
	src, err := h.deps.Sources.Upsert(c.Request.Context(), sourcerepo.UpsertInput{
		ChannelID: req.ChannelID,
		PostID:    req.PostID,
		Category:  req.Category,
		IsUsed:    req.IsUsed,
		PriceKind: kind,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

func (h *handlers) deactivateSource(c *gin.Context) {
	channelID, err := strconv.ParseInt(c.Query("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id required"})
		return
	}
	postID, err := strconv.Atoi(c.Query("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_id required"})
		return
	}
	if err := h.deps.Sources.Deactivate(c.Request.Context(), channelID, postID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listPendingOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type decideRequest struct {
	ModeratorID int64 `json:"moderatorId" binding:"required"`
	Approve     *bool `json:"approve" binding:"required"`
}

func (h *handlers) decideOrder(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.deps.Orders.Decide(c.Request.Context(), c.Param("id"), req.ModeratorID, *req.Approve)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type proofRequest struct {
	PhotoRef  string `json:"photoRef" binding:"required"`
	ProofText string `json:"proofText"`
}

func (h *handlers) attachProof(c *gin.Context) {
	var req proofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.deps.Orders.AttachProof(c.Request.Context(), c.Param("id"), req.PhotoRef, req.ProofText)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) skipProof(c *gin.Context) {
	o, err := h.deps.Orders.SkipProof(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) getCart(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	cart, err := h.deps.Carts.Items(c.Request.Context(), buyerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart, "total": cart.Total(), "count": cart.Count()})
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Kind      string `json:"kind" binding:"required"`
}

func (h *handlers) addCartItem(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cart, err := h.deps.Carts.Add(c.Request.Context(), buyerID, req.ProductID, req.Quantity, domain.PriceKind(req.Kind))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	cart, err := h.deps.Carts.Remove(c.Request.Context(), buyerID, c.Param("product_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	if err := h.deps.Carts.Clear(c.Request.Context(), buyerID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkoutRequest struct {
	Username string `json:"username"`
	Kind     string `json:"kind" binding:"required"`
}

func (h *handlers) checkout(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orders, err := h.deps.Orders.CreateFromCart(c.Request.Context(), buyerID, req.Username, domain.PriceKind(req.Kind))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) buyerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("buyer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer id"})
		return 0, false
	}
	return id, true
}

func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrNoPrice):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no price for requested kind"})
	case errors.Is(err, domain.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"error": "already decided"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
