package shot

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
)

// Handler exposes the /api/shots endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// requesterID is the caller's user id, or zero for anonymous requests.
func requesterID(r *http.Request) int64 {
	if id := session.FromContext(r.Context()); id != nil {
		return id.UserID
	}
	return 0
}

type createResponse struct {
	Message string `json:"message"`
	ShotID  int64  `json:"shotId,string"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Authentication required"))
		return
	}
	var in entity.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Debugw("invalid shot payload", "err", err)
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	s, err := h.svc.Create(r.Context(), in, id.UserID, id.Username)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("shot logged", "shot_id", s.ID, "location_id", s.LocationID, "user_id", id.UserID)
	apperror.WriteJSON(w, http.StatusCreated, createResponse{Message: "Shot logged successfully", ShotID: s.ID})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shots, err := h.svc.List(r.Context(), ListQuery{
		UserID:      q.Get("userId"),
		LocationID:  q.Get("locationId"),
		CameraModel: q.Get("cameraModel"),
		Lens:        q.Get("lens"),
	}, requesterID(r))
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, shots)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context(), r.PathValue("id"), requesterID(r))
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Authentication required"))
		return
	}
	var p entity.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	if _, err := h.svc.Update(r.Context(), r.PathValue("id"), p, id.UserID); err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Shot updated successfully"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Authentication required"))
		return
	}
	if err := h.svc.Delete(r.Context(), r.PathValue("id"), id.UserID); err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("shot deleted", "shot_id", r.PathValue("id"), "user_id", id.UserID)
	apperror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Shot deleted successfully"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("userId")
	// Stats include private shots whoever asks.
	if caller := requesterID(r); caller == 0 || utilities.FormatID(caller) != subject {
		h.logger.Debugw("stats requested for another user", "subject", subject, "caller", caller)
	}
	st, err := h.svc.Stats(r.Context(), subject)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) ByLocation(w http.ResponseWriter, r *http.Request) {
	shots, err := h.svc.ListByLocation(r.Context(), r.PathValue("locationId"))
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, shots)
}
