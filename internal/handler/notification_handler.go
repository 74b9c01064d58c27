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

// NotificationHandler exposes the notification scheduler over HTTP.
type NotificationHandler struct {
	container *container.Container
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(container *container.Container) *NotificationHandler {
	return &NotificationHandler{
		container: container,
	}
}

// RegisterRoutes mounts the notification routes onto the router
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Post("/permission", h.RequestPermission)
		r.Get("/permission", h.GetPermission)
		r.Post("/send", h.SendNow)
		r.Post("/schedule", h.Schedule)
		r.Post("/campaign/start", h.StartCampaign)
		r.Post("/campaign/stop", h.StopCampaign)
		r.Put("/enabled", h.SetEnabled)
		r.Put("/badge", h.SetBadge)
		r.Get("/badge", h.GetBadge)
	})
}

// SendNotificationRequest is the immediate delivery payload
type SendNotificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ScheduleNotificationRequest is the delayed delivery payload
type ScheduleNotificationRequest struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	DelayHours float64 `json:"delay_hours"`
	Badge      *int    `json:"badge,omitempty"`
}

// RequestPermission handles POST /v1/notifications/permission
func (h *NotificationHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	status, err := h.container.GetNotificationService().RequestPermission(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"permission": status})
}

// GetPermission handles GET /v1/notifications/permission
func (h *NotificationHandler) GetPermission(w http.ResponseWriter, r *http.Request) {
	status := h.container.GetNotificationService().Permission()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"permission": status})
}

// SendNow handles POST /v1/notifications/send
func (h *NotificationHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	if err := h.container.GetNotificationService().SendNow(r.Context(), req.Title, req.Body); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Schedule handles POST /v1/notifications/schedule
func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	n := domain.Notification{
		ID:    req.ID,
		Title: req.Title,
		Body:  req.Body,
		Badge: req.Badge,
	}
	delay := time.Duration(req.DelayHours * float64(time.Hour))
	if err := h.container.GetNotificationService().Schedule(r.Context(), n, delay); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// StartCampaign handles POST /v1/notifications/campaign/start
func (h *NotificationHandler) StartCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetNotificationService().StartCampaign(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// StopCampaign handles POST /v1/notifications/campaign/stop
func (h *NotificationHandler) StopCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetNotificationService().StopCampaign(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// SetEnabled handles PUT /v1/notifications/enabled
func (h *NotificationHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	if err := h.container.GetNotificationService().SetEnabled(r.Context(), req.Enabled); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": req.Enabled})
}

// SetBadge handles PUT /v1/notifications/badge
func (h *NotificationHandler) SetBadge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	if err := h.container.GetNotificationService().SetBadge(r.Context(), req.Count); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"count": req.Count})
}

// GetBadge handles GET /v1/notifications/badge
func (h *NotificationHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	count, err := h.container.GetNotificationService().BadgeCount(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

func (h *NotificationHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to encode response")
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, err error) {
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
