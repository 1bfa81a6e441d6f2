package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"toolshare-backend/internal/service"
)

const apiPrefix = "/api/v1"

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth         service.AuthService
	Users        service.UserService
	Tools        service.ToolService
	Availability service.AvailabilityService
	Bookings     service.BookingService
	Swaps        service.SwapService

	Health  HealthChecker
	Metrics http.Handler // optional
}

type Handler struct {
	svc Services
}

// NewRouter registers every route. Route names double as keys into
// config.EndpointSecurityConfig.
func NewRouter(svc Services) *mux.Router {
	h := &Handler{svc: svc}
	router := mux.NewRouter()
	router.Use(recoverPanics, logRequests, h.authenticate)

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet).Name("Healthz")
	if svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics).Methods(http.MethodGet).Name("Metrics")
	}

	api := router.PathPrefix(apiPrefix).Subrouter()

	// Auth & users
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost).Name("Login")
	api.HandleFunc("/users", h.Register).Methods(http.MethodPost).Name("Register")
	api.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet).Name("GetMe")

	// Tools
	api.HandleFunc("/tools", h.SearchTools).Methods(http.MethodGet).Name("SearchTools")
	api.HandleFunc("/tools", h.AddListing).Methods(http.MethodPost).Name("AddListing")
	api.HandleFunc("/tools/facets", h.ToolFacets).Methods(http.MethodGet).Name("ToolFacets")
	api.HandleFunc("/tools/{id:[0-9]+}", h.GetTool).Methods(http.MethodGet).Name("GetTool")
	api.HandleFunc("/tools/{id:[0-9]+}/availability", h.GetAvailability).Methods(http.MethodGet).Name("GetAvailability")
	api.HandleFunc("/tools/{id:[0-9]+}/availability", h.SetAvailability).Methods(http.MethodPut).Name("SetAvailability")
	api.HandleFunc("/tools/{id:[0-9]+}/quote", h.GetQuote).Methods(http.MethodGet).Name("GetQuote")
	api.HandleFunc("/tools/{id:[0-9]+}/bookings", h.ListToolBookings).Methods(http.MethodGet).Name("ListToolBookings")

	// Bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost).Name("CreateBooking")
	api.HandleFunc("/bookings", h.ListBookings).Methods(http.MethodGet).Name("ListBookings")
	api.HandleFunc("/bookings/{id:[0-9]+}", h.GetBooking).Methods(http.MethodGet).Name("GetBooking")
	api.HandleFunc("/bookings/{id:[0-9]+}/transitions", h.TransitionBooking).Methods(http.MethodPost).Name("TransitionBooking")

	// Swaps
	api.HandleFunc("/swaps", h.ProposeSwap).Methods(http.MethodPost).Name("ProposeSwap")
	api.HandleFunc("/swaps", h.ListSwaps).Methods(http.MethodGet).Name("ListSwaps")
	api.HandleFunc("/swaps/{id:[0-9]+}", h.GetSwap).Methods(http.MethodGet).Name("GetSwap")
	api.HandleFunc("/swaps/{id:[0-9]+}/responses", h.RespondToSwap).Methods(http.MethodPost).Name("RespondToSwap")

	return router
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
