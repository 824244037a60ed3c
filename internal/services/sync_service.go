package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/baharkarakas/chainspend/internal/metrics"
	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/normalize"
	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/baharkarakas/chainspend/internal/synclock"
)

// ErrFetchFailed wraps any error returned by a Fetcher.
var ErrFetchFailed = errors.New("failed to fetch transactions")

const noTransactionsMessage = "no transactions found"

// Fetcher is an external source of raw transaction records for an account.
type Fetcher interface {
	Fetch(ctx context.Context, account string) ([]models.RawRecord, error)
}

// StaticFetcher serves records that were handed to us directly, e.g. posted by a wallet.
type StaticFetcher []models.RawRecord

func (f StaticFetcher) Fetch(context.Context, string) ([]models.RawRecord, error) {
	return f, nil
}

type SyncResult struct {
	Fetched      int                  `json:"fetched"`
	Added        int                  `json:"added"`
	Transactions []models.Transaction `json:"transactions"`
	Message      string               `json:"message"`
}

type SyncService struct {
	trx    repo.Transactions
	norm   *normalize.Normalizer
	budget *BudgetService
	lock   synclock.Locker
	log    *slog.Logger
}

func NewSyncService(t repo.Transactions, n *normalize.Normalizer, b *BudgetService, lock synclock.Locker, log *slog.Logger) *SyncService {
	if lock == nil {
		lock = synclock.NewLocal()
	}
	if log == nil {
		log = slog.Default()
	}
	return &SyncService{trx: t, norm: n, budget: b, lock: lock, log: log}
}

// Sync pulls records for account from src, stores the ones not seen before and
// re-evaluates the user's budget when anything was added. Calls for the same
// user run one at a time. On a store error the rows inserted so far stay.
func (s *SyncService) Sync(ctx context.Context, userID int64, account string, src Fetcher) (SyncResult, error) {
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	unlock, err := s.lock.Lock(ctx, "user:"+strconv.FormatInt(userID, 10))
	if err != nil {
		return SyncResult{}, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer unlock()

	raw, err := src.Fetch(ctx, account)
	if err != nil {
		metrics.SyncFailures.WithLabelValues("fetch").Inc()
		return SyncResult{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	res := SyncResult{Fetched: len(raw), Transactions: []models.Transaction{}}
	if len(raw) == 0 {
		res.Message = noTransactionsMessage
		return res, nil
	}

	for _, r := range raw {
		tx, ok := s.norm.Normalize(userID, account, r)
		if !ok {
			metrics.TransactionsSynced.WithLabelValues("dropped").Inc()
			continue
		}
		exists, err := s.trx.Exists(ctx, tx.Hash)
		if err != nil {
			metrics.SyncFailures.WithLabelValues("store").Inc()
			return res, fmt.Errorf("check %s: %w", tx.Hash, err)
		}
		if exists {
			metrics.TransactionsSynced.WithLabelValues("duplicate").Inc()
			continue
		}
		saved, err := s.trx.Insert(ctx, tx)
		if IsDuplicate(err) {
			metrics.TransactionsSynced.WithLabelValues("duplicate").Inc()
			continue
		}
		if err != nil {
			metrics.SyncFailures.WithLabelValues("store").Inc()
			return res, fmt.Errorf("insert %s: %w", tx.Hash, err)
		}
		metrics.TransactionsSynced.WithLabelValues("added").Inc()
		res.Transactions = append(res.Transactions, saved)
	}
	res.Added = len(res.Transactions)
	res.Message = fmt.Sprintf("%d new transactions synced", res.Added)

	s.log.Info("sync done", "user_id", userID, "account", account, "fetched", res.Fetched, "added", res.Added)

	if res.Added > 0 && s.budget != nil {
		if _, err := s.budget.Evaluate(ctx, userID); err != nil {
			metrics.SyncFailures.WithLabelValues("budget").Inc()
			s.log.Error("evaluate budget after sync", "user_id", userID, "err", err)
		}
	}
	return res, nil
}
