package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
	"github.com/baharkarakas/chainspend/internal/api/validate"
)

type userKey struct{}

func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the user resolved for the request, or 0 outside the User middleware.
func UserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(userKey{}).(int64); ok {
		return v
	}
	return 0
}

// User resolves the acting user from the userId query parameter, then the
// X-User-Id header, falling back to def. There is no authentication: every
// caller is trusted to name its own user.
func User(def int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.URL.Query().Get("userId"))
			if raw == "" {
				raw = strings.TrimSpace(r.Header.Get("X-User-Id"))
			}
			uid := def
			if raw != "" {
				n, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "invalid userId", nil,
						validate.Errs{{Field: "userId", Msg: "must be an integer"}})
					return
				}
				if ef := validate.MinInt("userId", n, 1); ef != nil {
					httpx.WriteError(w, http.StatusBadRequest, "invalid userId", nil, validate.Errs{*ef})
					return
				}
				uid = n
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid)))
		})
	}
}
