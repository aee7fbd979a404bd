package location

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
)

// Handler exposes the /api/locations endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type locationResponse struct {
	Message  string           `json:"message"`
	Location *entity.Location `json:"location"`
}

type listResponse struct {
	Locations  []*entity.Location `json:"locations"`
	Pagination entity.Pagination  `json:"pagination"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id == nil {
		apperror.Write(w, h.logger, apperror.Auth("Authentication required"))
		return
	}
	var in entity.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Debugw("invalid location payload", "err", err)
		apperror.Write(w, h.logger, apperror.Validation("Invalid request body"))
		return
	}
	l, err := h.svc.Create(r.Context(), in, id.UserID)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("location created", "location_id", l.ID, "user_id", id.UserID)
	apperror.WriteJSON(w, http.StatusCreated, locationResponse{Message: "Location created successfully", Location: l})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.Filter{
		City:          q.Get("city"),
		Search:        q.Get("search"),
		Style:         q.Get("style"),
		TimeOfDay:     q.Get("timeOfDay"),
		Season:        q.Get("season"),
		Difficulty:    q.Get("difficulty"),
		Accessibility: q.Get("accessibility"),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	items, p, err := h.svc.List(r.Context(), f, page, limit)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, listResponse{Locations: items, Pagination: p})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, l)
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
	l, err := h.svc.Update(r.Context(), r.PathValue("id"), p, id.UserID)
	if err != nil {
		apperror.Write(w, h.logger, err)
		return
	}
	apperror.WriteJSON(w, http.StatusOK, locationResponse{Message: "Location updated successfully", Location: l})
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
	h.logger.Infow("location deleted", "location_id", r.PathValue("id"), "user_id", id.UserID)
	apperror.WriteJSON(w, http.StatusOK, map[string]string{"message": "Location deleted successfully"})
}
