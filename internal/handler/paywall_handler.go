package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appcore/internal/container"
	"appcore/internal/domain"
	"appcore/pkg/errors"
)

// PaywallHandler exposes the paywall service over HTTP.
type PaywallHandler struct {
	container *container.Container
}

// NewPaywallHandler creates a new paywall handler
func NewPaywallHandler(container *container.Container) *PaywallHandler {
	return &PaywallHandler{
		container: container,
	}
}

// RegisterRoutes mounts the paywall routes onto the router
func (h *PaywallHandler) RegisterRoutes(r chi.Router) {
	r.Route("/paywall", func(r chi.Router) {
		r.Post("/placements/{name}", h.RegisterPlacement)
		r.Get("/attributes", h.GetAttributes)
		r.Patch("/attributes", h.SetAttributes)
		r.Get("/subscription", h.GetSubscription)
		r.Post("/purchase", h.PurchaseCompleted)
		r.Post("/restore", h.RestoreCompleted)
		r.Post("/cancel", h.Cancellation)
		r.Post("/expire", h.Expiration)
		r.Delete("/user-data", h.ResetUserData)
	})
}

// PurchaseRequest is the completed-purchase payload
type PurchaseRequest struct {
	ProductID string `json:"product_id"`
	IsTrial   bool   `json:"is_trial"`
}

// RegisterPlacement handles POST /v1/paywall/placements/{name}
func (h *PaywallHandler) RegisterPlacement(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.writeError(w, errors.NewInvalidInputError("Placement name is required", nil))
		return
	}

	var params domain.DataMap
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
			return
		}
	}

	if err := h.container.GetPaywallService().RegisterPlacement(r.Context(), name, params); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetAttributes handles GET /v1/paywall/attributes
func (h *PaywallHandler) GetAttributes(w http.ResponseWriter, r *http.Request) {
	attrs := h.container.GetPaywallService().Attributes()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"attributes": attrs})
}

// SetAttributes handles PATCH /v1/paywall/attributes
func (h *PaywallHandler) SetAttributes(w http.ResponseWriter, r *http.Request) {
	var attrs domain.DataMap
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	paywall := h.container.GetPaywallService()
	if err := paywall.SetUserAttributes(r.Context(), attrs); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"attributes": paywall.Attributes()})
}

// GetSubscription handles GET /v1/paywall/subscription
func (h *PaywallHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	status := h.container.GetPaywallService().SubscriptionStatus()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"is_active": status.IsActive(),
	})
}

// PurchaseCompleted handles POST /v1/paywall/purchase
func (h *PaywallHandler) PurchaseCompleted(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}
	if req.ProductID == "" {
		h.writeError(w, errors.NewInvalidInputError("Product id is required", nil))
		return
	}

	if err := h.container.GetPaywallService().HandlePurchaseCompleted(r.Context(), req.ProductID, req.IsTrial); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSubscription(w)
}

// RestoreCompleted handles POST /v1/paywall/restore
func (h *PaywallHandler) RestoreCompleted(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetPaywallService().HandleRestoreCompleted(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSubscription(w)
}

// Cancellation handles POST /v1/paywall/cancel
func (h *PaywallHandler) Cancellation(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetPaywallService().HandleCancellation(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSubscription(w)
}

// Expiration handles POST /v1/paywall/expire
func (h *PaywallHandler) Expiration(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetPaywallService().HandleExpiration(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSubscription(w)
}

// ResetUserData handles DELETE /v1/paywall/user-data
func (h *PaywallHandler) ResetUserData(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetPaywallService().ResetUserData(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *PaywallHandler) writeSubscription(w http.ResponseWriter) {
	status := h.container.GetPaywallService().SubscriptionStatus()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": status})
}

func (h *PaywallHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to encode response")
	}
}

func (h *PaywallHandler) writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.NewStorageError("operation failed", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		h.container.GetLogger().WithError(encErr).Error("Failed to encode error response")
	}
}
