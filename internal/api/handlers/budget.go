package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/middleware"
	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/services"
)

type BudgetHandler struct {
	Svc *services.BudgetService
}

type budgetReq struct {
	UserID      *int64          `json:"userId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart Date            `json:"periodStart"`
	PeriodEnd   Date            `json:"periodEnd"`
	Currency    string          `json:"currency"`
}

type budgetPatchReq struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	PeriodStart *Date            `json:"periodStart,omitempty"`
	PeriodEnd   *Date            `json:"periodEnd,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
}

type usageResp struct {
	models.Usage
	Budget *models.Budget `json:"budget"`
}

// Get returns the user's budget or null.
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// Set creates the user's budget or replaces the existing one.
func (h *BudgetHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req budgetReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	uid, ef := userFor(r, req.UserID)
	if ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil, validate.Errs{*ef})
		return
	}
	b, err := h.Svc.Set(r.Context(), models.Budget{
		UserID:      uid,
		Amount:      req.Amount,
		PeriodStart: req.PeriodStart.Time,
		PeriodEnd:   req.PeriodEnd.Time,
		Currency:    req.Currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req budgetPatchReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	patch := models.BudgetPatch{Amount: req.Amount, Currency: req.Currency}
	if req.PeriodStart != nil {
		patch.PeriodStart = &req.PeriodStart.Time
	}
	if req.PeriodEnd != nil {
		patch.PeriodEnd = &req.PeriodEnd.Time
	}
	b, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *BudgetHandler) Usage(w http.ResponseWriter, r *http.Request) {
	u, b, err := h.Svc.Usage(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, usageResp{Usage: u, Budget: b})
}
