package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/chainspend/internal/api/handlers"
	"github.com/baharkarakas/chainspend/internal/metrics"
	"github.com/baharkarakas/chainspend/internal/middleware"
	"github.com/baharkarakas/chainspend/internal/services"
)

type RouterDeps struct {
	RateRPS        int
	DefaultUserID  int64
	DefaultAccount string

	SyncSvc         *services.SyncService
	TxnSvc          *services.TransactionService
	BudgetSvc       *services.BudgetService
	NotificationSvc *services.NotificationService
	// Explorer may be nil; explorer sync then answers 503.
	Explorer services.Fetcher
}

func NewRouter(d RouterDeps) http.Handler {
	if d.DefaultUserID <= 0 {
		d.DefaultUserID = 1
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	sh := &handlers.SyncHandler{Svc: d.SyncSvc, Explorer: d.Explorer, DefaultAccount: d.DefaultAccount}
	th := &handlers.TransactionHandler{Svc: d.TxnSvc}
	bh := &handlers.BudgetHandler{Svc: d.BudgetSvc}
	nh := &handlers.NotificationHandler{Svc: d.NotificationSvc}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.User(d.DefaultUserID))

		r.Post("/sync", sh.Posted)
		r.Post("/sync/explorer", sh.FromExplorer)

		r.Get("/transactions", th.List)
		r.Post("/transactions", th.Create)
		r.Get("/transactions/hash/{hash}", th.GetByHash)
		r.Get("/categorized-transactions", th.Categorized)

		r.Get("/budget", bh.Get)
		r.Post("/budget", bh.Set)
		r.Get("/budget/usage", bh.Usage)
		r.Put("/budget/{id}", bh.Update)

		r.Get("/notifications", nh.List)
		r.Post("/notifications", nh.Create)
		r.Patch("/notifications/{id}/read", nh.MarkRead)
	})

	return r
}
