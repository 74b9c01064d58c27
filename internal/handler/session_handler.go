package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"appcore/internal/container"
	"appcore/internal/domain"
	"appcore/internal/service"
	"appcore/pkg/errors"
)

// SessionHandler exposes the user-state manager to the UI layer. The UI
// never reads storage directly; every read and mutation goes through these
// endpoints.
type SessionHandler struct {
	container *container.Container
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(container *container.Container) *SessionHandler {
	return &SessionHandler{
		container: container,
	}
}

// SignInRequest is the sign-in payload
type SignInRequest struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// SignInResponse carries the created user and the minted session token
type SignInResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// SessionResponse is the observable session state plus derived reads
type SessionResponse struct {
	domain.SessionState
	NeedsOnboarding bool   `json:"needs_onboarding"`
	IsFullySetUp    bool   `json:"is_fully_set_up"`
	DisplayName     string `json:"display_name"`
	Initials        string `json:"initials"`
}

// UpdateProfileRequest carries optional profile fields; absent fields keep
// their prior values
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SignIn handles POST /v1/session/sign-in
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	sessions := h.container.GetSessionService()
	user, err := sessions.SignIn(r.Context(), req.UserID, service.SignInOptions{
		Email:     req.Email,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}

	token, err := h.container.GetTokenManager().Issue(user.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to mint session token")
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	if err := sessions.SetSessionToken(r.Context(), token); err != nil {
		logger.WithError(err).Warn("Failed to persist session token")
	}

	h.writeJSON(w, http.StatusOK, SignInResponse{User: user, Token: token})
}

// SignOut handles POST /v1/session/sign-out
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetSessionService().SignOut(r.Context()); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetSession handles GET /v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state := h.container.GetSessionService().Snapshot()
	h.writeJSON(w, http.StatusOK, SessionResponse{
		SessionState:    state,
		NeedsOnboarding: state.NeedsOnboarding(),
		IsFullySetUp:    state.IsFullySetUp(),
		DisplayName:     state.DisplayName(),
		Initials:        state.Initials(),
	})
}

// CompleteOnboarding handles POST /v1/session/onboarding/complete
func (h *SessionHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetSessionService().CompleteOnboarding(r.Context()); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ResetOnboarding handles POST /v1/session/onboarding/reset
func (h *SessionHandler) ResetOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetSessionService().ResetOnboarding(r.Context()); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateUserData handles PATCH /v1/session/data
func (h *SessionHandler) UpdateUserData(w http.ResponseWriter, r *http.Request) {
	var partial domain.DataMap
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		h.writeErrorResponse(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	if err := h.container.GetSessionService().UpdateUserData(r.Context(), partial); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.GetSession(w, r)
}

// UpdateProfile handles PATCH /v1/session/profile
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, errors.NewInvalidInputError("Invalid request body", nil))
		return
	}

	user, err := h.container.GetSessionService().UpdateProfile(r.Context(), req.Name, req.Email, req.AvatarURL)
	if err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Sync handles POST /v1/session/sync
func (h *SessionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetSessionService().SyncUserData(r.Context()); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.GetSession(w, r)
}

// Reset handles DELETE /v1/session
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.container.GetSessionService().ResetAllUserData(r.Context()); err != nil {
		h.writeErrorResponse(w, h.asAppError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// asAppError normalizes any error into an AppError for response mapping
func (h *SessionHandler) asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.NewStorageError("operation failed", err)
}

// writeJSON writes a JSON response
func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to encode response")
	}
}

// writeErrorResponse writes an error response to the client
func (h *SessionHandler) writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError) {
	h.container.GetLogger().WithError(appErr).Debug("Request error")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to encode error response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
