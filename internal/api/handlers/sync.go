package handlers

import (
	"net/http"
	"strings"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/normalize"
	"github.com/baharkarakas/chainspend/internal/services"
)

type SyncHandler struct {
	Svc *services.SyncService
	// Explorer is nil when no explorer API is configured.
	Explorer       services.Fetcher
	DefaultAccount string
}

type syncReq struct {
	UserID       *int64             `json:"userId,omitempty"`
	Account      string             `json:"account"`
	Transactions []models.RawRecord `json:"transactions"`
}

type syncResp struct {
	Success bool `json:"success"`
	services.SyncResult
}

// Posted runs a sync over the records in the request body. Without a tracked
// account every record must carry its own type, otherwise spends would be
// counted as received.
func (h *SyncHandler) Posted(w http.ResponseWriter, r *http.Request) {
	var req syncReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if !h.hasAccount(req) {
		for _, rec := range req.Transactions {
			if !normalize.HasType(rec) {
				httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil,
					validate.Errs{{Field: "account", Msg: "required unless every transaction has a type"}})
				return
			}
		}
	}
	h.run(w, r, req, services.StaticFetcher(req.Transactions))
}

// FromExplorer pulls the account history from the configured block explorer.
func (h *SyncHandler) FromExplorer(w http.ResponseWriter, r *http.Request) {
	if h.Explorer == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "block explorer not configured", nil, nil)
		return
	}
	var req syncReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if !h.hasAccount(req) {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil,
			validate.Errs{{Field: "account", Msg: "required"}})
		return
	}
	h.run(w, r, req, h.Explorer)
}

func (h *SyncHandler) hasAccount(req syncReq) bool {
	return strings.TrimSpace(req.Account) != "" || h.DefaultAccount != ""
}

func (h *SyncHandler) run(w http.ResponseWriter, r *http.Request, req syncReq, src services.Fetcher) {
	uid, ef := userFor(r, req.UserID)
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil, validate.Errs{*ef})
		return
	}
	account := strings.TrimSpace(req.Account)
	if account == "" {
		account = h.DefaultAccount
	}

	res, err := h.Svc.Sync(r.Context(), uid, account, src)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, syncResp{Success: true, SyncResult: res})
}
