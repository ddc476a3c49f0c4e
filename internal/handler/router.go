package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/coffee-machine/internal/metrics"
	custommiddleware "github.com/mmeshcher/coffee-machine/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware кофемашины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Metrics)
	r.Use(chimiddleware.Compress(5, "application/json"))
	r.Use(custommiddleware.DecompressRequest)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/ping", h.Ping)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/authentication", h.Authenticate)
		r.Post("/users", h.CreateUser)
		r.Get("/coffees", h.ListCoffees)
		r.Get("/statistics", h.ListStatistics)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/users", h.ListUsers)
			r.Get("/users/{id}", h.GetUser)
			r.Put("/users/{id}", h.UpdateUser)
			r.Delete("/users/{id}", h.DeleteUser)
			r.Put("/users/{id}/balance", h.TopUpBalance)

			r.Post("/coffees", h.CreateCoffee)
			r.Get("/coffees/{id}", h.GetCoffee)
			r.Put("/coffees/{id}", h.UpdateCoffee)
			r.Delete("/coffees/{id}", h.DeleteCoffee)

			r.Post("/orders", h.MakeOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}", h.UpdateOrder)
			r.Delete("/orders/{id}", h.DeleteOrder)

			r.Post("/statistics", h.CreateStatistic)
			r.Get("/statistics/{id}", h.GetStatistic)
			r.Get("/statistics/coffee/{id}", h.GetStatisticByCoffee)
			r.Put("/statistics/{id}", h.UpdateStatistic)
			r.Delete("/statistics/{id}", h.DeleteStatistic)
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
