package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
)

// Handler exposes the /api/auth endpoints.
type Handler struct {
	svc      *UserService
	sessions *session.Manager
	logger   *zap.SugaredLogger
}

func NewHandler(svc *UserService, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// SignupResponse response body containing new user id.
type SignupResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	u, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	if _, err := h.sessions.Open(r.Context(), w, u.ID, u.Username, u.Email); err != nil {
		apperror.Write(w, h.logger, apperror.Server("Server error", err))
		return
	}
	h.logger.Infow("user signed up", "user_id", u.ID, "username", u.Username)
	apperror.WriteJSON(w, http.StatusCreated, SignupResponse{
		Message:  "User created successfully",
		UserID:   u.ID,
		Username: u.Username,
	})
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string            `json:"message"`
	User    entity.PublicView `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	if _, err := h.sessions.Open(r.Context(), w, u.ID, u.Username, u.Email); err != nil {
		apperror.Write(w, h.logger, apperror.Server("Server error", err))
		return
	}
	apperror.WriteJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", User: u.Public()})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Not authenticated"))
		return
	}
	if err := h.sessions.Destroy(r.Context(), w, id.SessionID); err != nil {
		apperror.Write(w, h.logger, apperror.Server("Could not logout", err))
		return
	}
	apperror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// MeResponse mirrors the identity stored in the session.
type MeResponse struct {
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Not authenticated"))
		return
	}
	apperror.WriteJSON(w, http.StatusOK, MeResponse{UserID: id.UserID, Username: id.Username, Email: id.Email})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Not authenticated"))
		return
	}
	var patch entity.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	applied, err := h.svc.UpdateProfile(r.Context(), id.UserID, patch)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	if applied.Email != nil && *applied.Email != id.Email {
		if err := h.sessions.UpdateEmail(r.Context(), id.SessionID, *applied.Email); err != nil {
			h.logger.Warnw("mirror email into session failed", "session", id.SessionID, "err", err)
		}
	}
	apperror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}
