package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/middleware"
	"github.com/baharkarakas/chainspend/internal/services"
)

type TransactionHandler struct {
	Svc *services.TransactionService
}

type createTxReq struct {
	UserID    *int64           `json:"userId,omitempty"`
	Hash      string           `json:"hash"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Amount    *decimal.Decimal `json:"amount"`
	Timestamp *Date            `json:"timestamp,omitempty"`
	Currency  string           `json:"currency"`
	Category  string           `json:"category"`
	Status    string           `json:"status"`
	Type      string           `json:"type"`
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Svc.ListByUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) GetByHash(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Svc.GetByHash(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTxReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	uid, ef := userFor(r, req.UserID)
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil, validate.Errs{*ef})
		return
	}
	tx, err := h.Svc.Create(r.Context(), services.NewTransaction{
		UserID:    uid,
		Hash:      req.Hash,
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Timestamp: req.Timestamp.value(),
		Currency:  req.Currency,
		Category:  req.Category,
		Status:    req.Status,
		Type:      req.Type,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) Categorized(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Svc.Categorized(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, groups)
}
