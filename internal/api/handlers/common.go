package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/middleware"
	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/baharkarakas/chainspend/internal/services"
)

// writeServiceError maps service and store errors onto the HTTP error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errs
	switch {
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", nil, verrs)
	case errors.Is(err, repo.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found", nil, nil)
	case errors.Is(err, repo.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "transaction already exists", nil, nil)
	case errors.Is(err, services.ErrFetchFailed):
		slog.Warn("upstream fetch failed", "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusBadGateway, "failed to fetch transactions", err, nil)
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error", err, nil)
	}
}

func writeBadJSON(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body", nil,
		validate.Errs{{Field: "body", Msg: err.Error()}})
}

// userFor prefers an explicit userId from the body over the one resolved by middleware.
func userFor(r *http.Request, fromBody *int64) (int64, *validate.ErrField) {
	if fromBody != nil {
		if ef := validate.MinInt("userId", *fromBody, 1); ef != nil {
			return 0, ef
		}
		return *fromBody, nil
	}
	return middleware.UserID(r.Context()), nil
}

// Date accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (midnight UTC).
type Date struct{ time.Time }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return errors.New("invalid date " + s + ", want RFC 3339 or YYYY-MM-DD")
}

func (d *Date) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
