// Package routes wires handlers onto the router.
package routes

import (
	"net/http"

	"github.com/noirlabs/noir/internal/handler"
	"github.com/noirlabs/noir/internal/router"
)

// APIDeps contains the handlers served by the API router.
type APIDeps struct {
	Orders    *handler.OrderHandler
	Inventory *handler.InventoryHandler
	Rates     *handler.RateHandler
	Webhooks  *handler.StripeWebhookHandler
	Health    *handler.HealthHandler

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler
}

// RegisterAPIRoutes registers all API routes.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Orders
	r.Post("/api/orders", deps.Orders.Create)
	r.Get("/api/orders", deps.Orders.List)
	r.Get("/api/orders/{id}", deps.Orders.Get)
	r.Get("/api/orders/number/{number}", deps.Orders.GetByNumber)
	r.Post("/api/orders/{id}/confirm", deps.Orders.Confirm)
	r.Post("/api/orders/{id}/process", deps.Orders.StartProcessing)
	r.Post("/api/orders/{id}/ship", deps.Orders.Ship)
	r.Post("/api/orders/{id}/deliver", deps.Orders.MarkAsDelivered)
	r.Post("/api/orders/{id}/complete", deps.Orders.Complete)
	r.Post("/api/orders/{id}/cancel", deps.Orders.Cancel)
	r.Post("/api/orders/{id}/return", deps.Orders.Return)
	r.Post("/api/orders/{id}/refund", deps.Orders.Refund)
	r.Post("/api/orders/{id}/payment-intent", deps.Orders.CreatePaymentIntent)

	// Inventory
	r.Post("/api/variants", deps.Inventory.CreateVariant)
	r.Get("/api/variants/{id}/stock", deps.Inventory.StockLevel)
	r.Post("/api/variants/{id}/movements", deps.Inventory.RecordMovement)
	r.Get("/api/variants/{id}/movements", deps.Inventory.ListMovements)

	// Shipping rates
	r.Post("/api/rates/quote", deps.Rates.Quote)

	// Payment gateway webhooks
	if deps.Webhooks != nil {
		r.Post("/api/webhooks/stripe", deps.Webhooks.Handle)
	}

	// Operational endpoints
	r.Get("/healthz", deps.Health.Healthz)
	if deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}
