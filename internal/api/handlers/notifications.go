package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/middleware"
	"github.com/baharkarakas/chainspend/internal/services"
)

type NotificationHandler struct {
	Svc *services.NotificationService
}

type createNotificationReq struct {
	UserID  *int64 `json:"userId,omitempty"`
	Message string `json:"message"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ns)
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	uid, ef := userFor(r, req.UserID)
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil, validate.Errs{*ef})
		return
	}
	n, err := h.Svc.Create(r.Context(), uid, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, n)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, n)
}
