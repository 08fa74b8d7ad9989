package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/port/http/middleware"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/service"
	"github.com/gorilla/mux"
)

type Handler struct {
	applications service.ApplicationService
	listings     service.ListingService
	log          logger.Logger
}

func NewHandler(applications service.ApplicationService, listings service.ListingService, log logger.Logger) *Handler {
	return &Handler{
		applications: applications,
		listings:     listings,
		log:          log,
	}
}

type submitApplicationRequest struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"message,omitempty"`
}

type createListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	TotalUnits  int     `json:"total_units"`
}

type setInventoryRequest struct {
	TotalUnits         *int    `json:"total_units,omitempty"`
	AvailableUnits     *int    `json:"available_units,omitempty"`
	AvailabilityStatus *string `json:"availability_status,omitempty"`
}

type applicationResponse struct {
	ID         string     `json:"id"`
	ListingID  string     `json:"listing_id"`
	TenantID   string     `json:"tenant_id"`
	LandlordID string     `json:"landlord_id"`
	Message    string     `json:"message,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ActedAt    *time.Time `json:"acted_at,omitempty"`
}

type listingResponse struct {
	ID                 string  `json:"id"`
	LandlordID         string  `json:"landlord_id"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	Price              float64 `json:"price"`
	TotalUnits         int     `json:"total_units"`
	AvailableUnits     int     `json:"available_units"`
	AvailabilityStatus string  `json:"availability_status"`
	Archived           bool    `json:"archived"`
}

type listResponse struct {
	Items      interface{} `json:"items"`
	TotalCount int64       `json:"total_count"`
}

func mapApplication(app *entity.Application) applicationResponse {
	return applicationResponse{
		ID:         app.ID,
		ListingID:  app.ListingID,
		TenantID:   app.TenantID,
		LandlordID: app.LandlordID,
		Message:    app.Message,
		Status:     string(app.Status),
		CreatedAt:  app.CreatedAt,
		ActedAt:    app.ActedAt,
	}
}

func mapListing(listing *entity.Listing) listingResponse {
	return listingResponse{
		ID:                 listing.ID,
		LandlordID:         listing.LandlordID,
		Title:              listing.Title,
		Description:        listing.Description,
		Price:              listing.Price,
		TotalUnits:         listing.TotalUnits,
		AvailableUnits:     listing.AvailableUnits,
		AvailabilityStatus: string(listing.AvailabilityStatus),
		Archived:           listing.Archived,
	}
}

func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req submitApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ListingID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "listing_id is required"})
		return
	}

	app, err := h.applications.Submit(r.Context(), userID, req.ListingID, req.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, mapApplication(app))
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	page, pageSize := paginationParams(r)
	listingID := r.URL.Query().Get("listing_id")

	var (
		apps  []entity.Application
		total int64
		err   error
	)
	if listingID != "" {
		apps, total, err = h.applications.ListForListing(r.Context(), listingID, userID, role, page, pageSize)
	} else {
		apps, total, err = h.applications.ListForTenant(r.Context(), userID, page, pageSize)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]applicationResponse, len(apps))
	for i := range apps {
		items[i] = mapApplication(&apps[i])
	}
	h.writeJSON(w, http.StatusOK, listResponse{Items: items, TotalCount: total})
}

func (h *Handler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}
	applicationID := mux.Vars(r)["id"]

	app, listing, err := h.applications.Approve(r.Context(), applicationID, userID, role)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]interface{}{"application": mapApplication(app)}
	if listing != nil {
		resp["listing"] = mapListing(listing)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}
	applicationID := mux.Vars(r)["id"]

	app, err := h.applications.Reject(r.Context(), applicationID, userID, role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapApplication(app))
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	listing, err := h.listings.Create(r.Context(), service.CreateListingParams{
		LandlordID:  userID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		TotalUnits:  req.TotalUnits,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, mapListing(listing))
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapListing(listing))
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	page, pageSize := paginationParams(r)
	listings, total, err := h.listings.ListForLandlord(r.Context(), userID, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]listingResponse, len(listings))
	for i := range listings {
		items[i] = mapListing(&listings[i])
	}
	h.writeJSON(w, http.StatusOK, listResponse{Items: items, TotalCount: total})
}

func (h *Handler) SetInventory(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	var req setInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	listing, err := h.listings.SetInventory(r.Context(), service.SetInventoryParams{
		ListingID:          mux.Vars(r)["id"],
		ActorID:            userID,
		ActorRole:          role,
		TotalUnits:         req.TotalUnits,
		AvailableUnits:     req.AvailableUnits,
		AvailabilityStatus: req.AvailabilityStatus,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapListing(listing))
}

func (h *Handler) ArchiveListing(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, service.ErrForbidden)
		return
	}

	if err := h.listings.Archive(r.Context(), mux.Vars(r)["id"], userID, role); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paginationParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrListingNotFound), errors.Is(err, service.ErrApplicationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateApplication),
		errors.Is(err, service.ErrListingOccupied),
		errors.Is(err, service.ErrNoUnitsAvailable),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrConcurrentUpdate):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Errorf("Unhandled error: %v", err)
		h.writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
