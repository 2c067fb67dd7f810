package httpserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// buildRouter wires the admin and cart routes.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	admin := router.Group("/admin")
	{
		admin.POST("/rescan", h.rescan)
		admin.GET("/products", h.listProducts)
		admin.GET("/sources", h.listSources)
		admin.POST("/sources", h.upsertSource)
		admin.DELETE("/sources", h.deactivateSource)
		admin.GET("/orders/pending", h.listPendingOrders)
		admin.POST("/orders/:id/decide", h.decideOrder)
		admin.POST("/orders/:id/proof", h.attachProof)
		admin.POST("/orders/:id/skip-proof", h.skipProof)
	}

	carts := router.Group("/carts/:buyer_id")
	{
		carts.GET("", h.getCart)
		carts.POST("/items", h.addCartItem)
		carts.DELETE("/items/:product_id", h.removeCartItem)
		carts.DELETE("", h.clearCart)
		carts.POST("/checkout", h.checkout)
	}

	return router
}
