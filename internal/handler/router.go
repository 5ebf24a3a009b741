package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/eguva/eguva-backend/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware API магазина Eguva.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Post("/newsletter", h.SubscribeNewsletter)

		// Витрине нужны стоимость доставки и порог бесплатной доставки.
		r.Get("/config", h.GetConfigs)

		// Вебхук провайдера не требует cookie: подлинность проверяется подписью.
		r.Post("/payments/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.GetMyOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Post("/payments/create-preference", h.CreatePreference)
			r.Post("/payments/process", h.ProcessPayment)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.authMiddleware.RequireAdmin)

			r.Get("/admin/orders", h.GetAllOrders)
			r.Patch("/admin/orders/{id}/status", h.UpdateOrderStatus)

			r.Put("/config", h.UpdateConfig)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
