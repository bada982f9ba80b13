package handler

import (
	"net/http"

	custommiddleware "github.com/electromax/electromax-pos/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRouter настраивает HTTP-маршруты и middleware кассы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.GetProducts)
		r.Put("/products/{id}", h.EditProduct)

		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ResetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Put("/cart/items/{id}", h.UpdateCartItem)
		r.Delete("/cart/items/{id}", h.RemoveCartItem)
		r.Put("/cart/customer", h.SetCustomer)

		r.Get("/orders", h.GetOrders)
		r.Post("/orders", h.CompleteOrder)
		r.Delete("/orders/{id}", h.DeleteOrder)

		r.Get("/debts", h.GetDebts)
		r.Post("/debts", h.CreateDebt)
		r.Post("/debts/{id}/paid", h.MarkDebtPaid)
		r.Delete("/debts/{id}", h.RemoveDebt)

		r.Get("/analytics", h.GetAnalytics)
		r.Get("/rate", h.GetRate)

		r.Get("/backup", h.GetBackup)
		r.Post("/backup/restore", h.RestoreBackup)
		r.Get("/export/{kind}", h.Export)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
