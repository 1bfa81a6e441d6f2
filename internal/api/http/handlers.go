package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type toolRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ToolType     string          `json:"tool_type"`
	Brand        string          `json:"brand"`
	Condition    string          `json:"condition"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	Deposit      decimal.Decimal `json:"deposit"`
	Neighborhood string          `json:"neighborhood"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	ImagePath    string          `json:"image_path"`
}

type searchResponse struct {
	Tools    []domain.Tool `json:"tools"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

type availabilityResponse struct {
	ToolID    int64  `json:"tool_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}

type bookingRequest struct {
	ToolID    int64  `json:"tool_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type swapRequest struct {
	ProposerToolID   int64  `json:"proposer_tool_id"`
	ReceiverUsername string `json:"receiver_username"`
	ReceiverToolID   int64  `json:"receiver_tool_id"`
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("%s must be an integer", name)
	}
	return v, nil
}

// Login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, expiresAt, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Users.Register(r.Context(), req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Users.GetProfile(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SearchTools lists available tools unless available=false is passed.
func (h *Handler) SearchTools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ToolFilter{
		ToolType:      q.Get("tool_type"),
		Neighborhood:  q.Get("neighborhood"),
		Query:         q.Get("q"),
		AvailableOnly: !strings.EqualFold(q.Get("available"), "false"),
	}
	if raw := q.Get("max_rate"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, r, domain.NewValidationError("max_rate %q is not a number", raw))
			return
		}
		filter.MaxDailyRate = &rate
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}

	tools, total, err := h.svc.Tools.Search(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = service.DefaultPageSize
	}
	if pageSize > service.MaxPageSize {
		pageSize = service.MaxPageSize
	}
	writeJSON(w, http.StatusOK, searchResponse{Tools: tools, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) ToolFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.svc.Tools.Facets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, facets)
}

func (h *Handler) AddListing(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tool, err := h.svc.Tools.AddListing(r.Context(), actor(r), &domain.Tool{
		Title:        req.Title,
		Description:  req.Description,
		ToolType:     req.ToolType,
		Brand:        req.Brand,
		Condition:    req.Condition,
		HourlyRate:   req.HourlyRate,
		DailyRate:    req.DailyRate,
		Deposit:      req.Deposit,
		Neighborhood: req.Neighborhood,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ImagePath:    req.ImagePath,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tool, err := h.svc.Tools.GetTool(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, end := r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
	ok, err := h.svc.Availability.IsAvailable(r.Context(), id, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{ToolID: id, StartDate: start, EndDate: end, Available: ok})
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req availabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Available == nil {
		writeError(w, r, domain.NewValidationError("available is required"))
		return
	}
	tool, err := h.svc.Tools.SetAvailability(r.Context(), actor(r), id, *req.Available)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := h.svc.Bookings.Quote(r.Context(), id, r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) ListToolBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookings, err := h.svc.Bookings.ListToolBookings(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	booking, err := h.svc.Bookings.CreateBooking(r.Context(), actor(r), req.ToolID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// ListBookings returns the caller's rentals, or with role=owner the requests on their tools.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	var (
		bookings []domain.Booking
		err      error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "", string(domain.RoleRenter):
		bookings, err = h.svc.Bookings.ListRentals(r.Context(), actor(r))
	case string(domain.RoleOwner):
		bookings, err = h.svc.Bookings.ListRequests(r.Context(), actor(r))
	default:
		err = domain.NewValidationError("role must be renter or owner, got %q", role)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	booking, err := h.svc.Bookings.GetBooking(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	action, err := domain.ParseBookingAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	booking, err := h.svc.Bookings.Transition(r.Context(), id, action, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) ProposeSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	swap, err := h.svc.Swaps.ProposeSwap(r.Context(), actor(r), req.ProposerToolID, req.ReceiverUsername, req.ReceiverToolID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

func (h *Handler) ListSwaps(w http.ResponseWriter, r *http.Request) {
	direction := domain.SwapDirection(r.URL.Query().Get("direction"))
	swaps, err := h.svc.Swaps.ListSwaps(r.Context(), actor(r), direction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

func (h *Handler) GetSwap(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	swap, err := h.svc.Swaps.GetSwap(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swap)
}

func (h *Handler) RespondToSwap(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	action, err := domain.ParseSwapAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	swap, err := h.svc.Swaps.RespondToSwap(r.Context(), id, action, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swap)
}
