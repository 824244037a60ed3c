package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/delivery"
	"github.com/baharkarakas/chainspend/internal/metrics"
	"github.com/baharkarakas/chainspend/internal/models"
	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/baharkarakas/chainspend/internal/worker"
)

const BudgetExceededMessage = "You have exceeded your budget for this period!"

const deliveryTimeout = 30 * time.Second

type NotificationService struct {
	notes   repo.Notifications
	budgets repo.Budgets
	out     delivery.Deliverer
	wp      *worker.Pool
	log     *slog.Logger
	nowFn   func() time.Time
}

func NewNotificationService(n repo.Notifications, b repo.Budgets, out delivery.Deliverer, wp *worker.Pool, log *slog.Logger) *NotificationService {
	if out == nil {
		out = delivery.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{notes: n, budgets: b, out: out, wp: wp, log: log, nowFn: time.Now}
}

func (s *NotificationService) Create(ctx context.Context, userID int64, message string) (models.Notification, error) {
	message = strings.TrimSpace(message)
	if ef := validate.Required("message", message); ef != nil {
		return models.Notification{}, validate.Errs{*ef}
	}
	return s.notes.Create(ctx, models.Notification{
		UserID:    userID,
		Message:   message,
		Timestamp: s.nowFn().UTC(),
	})
}

func (s *NotificationService) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.notes.ListByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	return s.notes.MarkRead(ctx, id)
}

// BudgetExceeded fires the overage alert for b at most once until the budget
// is replaced or updated. It returns nil when the alert already fired.
func (s *NotificationService) BudgetExceeded(ctx context.Context, b models.Budget, u models.Usage) (*models.Notification, error) {
	if !u.Exceeded {
		return nil, nil
	}
	won, err := s.budgets.MarkNotified(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("mark budget notified: %w", err)
	}
	if !won {
		return nil, nil
	}

	n, err := s.notes.Create(ctx, models.Notification{
		UserID:    b.UserID,
		Message:   BudgetExceededMessage,
		Timestamp: s.nowFn().UTC(),
	})
	if err != nil {
		// let the next evaluation retry
		if cerr := s.budgets.ClearNotified(ctx, b.ID); cerr != nil {
			s.log.Error("revert budget notified flag", "budget_id", b.ID, "err", cerr)
		}
		return nil, fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.Inc()
	s.log.Info("budget exceeded", "user_id", b.UserID, "budget_id", b.ID, "used", u.Used.String(), "total", u.Total.String())

	s.dispatch(delivery.BudgetAlert{
		UserID:   b.UserID,
		Message:  n.Message,
		Overage:  u.Overage(),
		Currency: b.Currency,
	})
	return &n, nil
}

func (s *NotificationService) dispatch(a delivery.BudgetAlert) {
	if s.wp == nil {
		return
	}
	ok := s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.out.Deliver(ctx, a); err != nil {
			s.recordDeliveryFailure(err)
		}
	})
	if !ok {
		s.log.Warn("worker pool stopped, alert not delivered", "user_id", a.UserID)
	}
}

func (s *NotificationService) recordDeliveryFailure(err error) {
	var failed []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failed = joined.Unwrap()
	} else {
		failed = []error{err}
	}
	for _, e := range failed {
		channel := s.out.Name()
		var ce *delivery.ChannelError
		if errors.As(e, &ce) {
			channel = ce.Channel
		}
		metrics.DeliveryFailures.WithLabelValues(channel).Inc()
		s.log.Error("deliver budget alert", "channel", channel, "err", e)
	}
}
