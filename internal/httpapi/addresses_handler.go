package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soulax-ranjan/ani-ayu-api/internal/domain"
	"github.com/soulax-ranjan/ani-ayu-api/internal/identity"
	"github.com/soulax-ranjan/ani-ayu-api/internal/service"
)

type AddressesHandler struct {
	addresses *service.AddressService
}

func NewAddressesHandler(addresses *service.AddressService) *AddressesHandler {
	return &AddressesHandler{addresses: addresses}
}

func (h *AddressesHandler) Routes(r chi.Router) {
	r.Get("/", h.listAddresses)
	r.Post("/", h.createAddress)
}

type createAddressRequest struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
	IsDefault    bool   `json:"is_default"`
}

func (h *AddressesHandler) createAddress(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.FromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req createAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.FullName == "" || req.AddressLine1 == "" || req.City == "" || req.PostalCode == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "full_name, address_line1, city and postal_code are required")
		return
	}

	address := &domain.Address{
		FullName:     req.FullName,
		Phone:        req.Phone,
		Email:        req.Email,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		PostalCode:   req.PostalCode,
		IsDefault:    req.IsDefault,
	}
	if err := h.addresses.CreateAddress(r.Context(), owner, address); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, address)
}

func (h *AddressesHandler) listAddresses(w http.ResponseWriter, r *http.Request) {
	owner, err := identity.FromContext(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	addresses, err := h.addresses.ListAddresses(r.Context(), owner)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"addresses": addresses})
}
