package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Snoopyx126/Atelier4-sub002/internal/middleware"
	"github.com/Snoopyx126/Atelier4-sub002/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса ателье.
func (h *Handler) SetupRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.CORS(allowedOrigins))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/login", h.Login)
	r.Post("/inscription", h.Register)
	r.Post("/send-email", h.SendEmail)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)

		r.Put("/users/{id}", h.UpdateUser)

		r.Get("/montages", h.ListMontages)
		r.Post("/montages", h.CreateMontage)

		r.Get("/invoices", h.ListInvoices)

		// Административные маршруты: роль проверяется сервером по подписи cookie,
		// присланным клиентом полям не доверяем.
		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.RequireRole(model.RoleAdmin))

			r.Get("/users", h.ListUsers)
			r.Put("/users/{id}/verification", h.SetVerification)

			r.Put("/montages/{id}", h.UpdateMontage)
			r.Delete("/montages/{id}", h.DeleteMontage)

			r.Post("/invoices", h.CreateInvoice)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "ressource introuvable")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "méthode non autorisée")
	})

	return r
}
