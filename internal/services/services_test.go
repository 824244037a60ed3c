package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/delivery"
	"github.com/baharkarakas/chainspend/internal/logger"
	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/normalize"
	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/baharkarakas/chainspend/internal/repository/memory"
	"github.com/baharkarakas/chainspend/internal/worker"
)

const account = "0xAbC0000000000000000000000000000000000001"

var (
	jan1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
)

type harness struct {
	store  repo.Store
	notify *NotificationService
	budget *BudgetService
	txs    *TransactionService
	sync   *SyncService
}

func newHarness(t *testing.T, out delivery.Deliverer, wp *worker.Pool) *harness {
	t.Helper()
	return newHarnessWith(t, memory.New(), out, wp)
}

func newHarnessWith(t *testing.T, store repo.Store, out delivery.Deliverer, wp *worker.Pool) *harness {
	t.Helper()
	log := logger.Discard()
	norm := normalize.New(nil, log)
	norm.Now = func() time.Time { return jan1 }

	h := &harness{store: store}
	h.notify = NewNotificationService(store.Notifications, store.Budgets, out, wp, log)
	h.notify.nowFn = func() time.Time { return jan1 }
	h.budget = NewBudgetService(store.Budgets, store.Transactions, h.notify, log)
	h.txs = NewTransactionService(store.Transactions, h.budget, log)
	h.sync = NewSyncService(store.Transactions, norm, h.budget, nil, log)
	return h
}

// spend is a raw record sent from the tracked account, amount in ETH.
func spend(hash, eth string, at time.Time) models.RawRecord {
	return models.RawRecord{
		Hash:      hash,
		From:      account,
		To:        "0x9999999999999999999999999999999999999999",
		Amount:    models.Flex(eth),
		TimeStamp: models.Flex(strconv.FormatInt(at.Unix(), 10)),
		IsError:   "0",
	}
}

// manual is a complete manually entered spend from the tracked account.
func manual(hash, eth string) NewTransaction {
	amt := decimal.RequireFromString(eth)
	return NewTransaction{
		UserID: 1,
		Hash:   hash,
		From:   account,
		To:     "0x9999999999999999999999999999999999999999",
		Amount: &amt,
		Status: "completed",
		Type:   "sent",
	}
}

func (h *harness) setBudget(t *testing.T, amount string, start, end time.Time) models.Budget {
	t.Helper()
	b, err := h.budget.Set(context.Background(), models.Budget{
		UserID:      1,
		Amount:      decimal.RequireFromString(amount),
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		t.Fatalf("set budget: %v", err)
	}
	return b
}

func (h *harness) mustSync(t *testing.T, recs ...models.RawRecord) SyncResult {
	t.Helper()
	res, err := h.sync.Sync(context.Background(), 1, account, StaticFetcher(recs))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	return res
}

func (h *harness) notifications(t *testing.T) []models.Notification {
	t.Helper()
	ns, err := h.notify.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return ns
}

func TestSyncIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, nil)
	recs := []models.RawRecord{
		spend("0x1", "0.1", jan1.Add(time.Hour)),
		spend("0x2", "0.2", jan1.Add(2*time.Hour)),
	}

	first := h.mustSync(t, recs...)
	if first.Added != 2 || first.Message != "2 new transactions synced" {
		t.Fatalf("first sync: %+v", first)
	}
	after1, _ := h.txs.ListByUser(context.Background(), 1)

	second := h.mustSync(t, recs...)
	if second.Added != 0 || second.Fetched != 2 || len(second.Transactions) != 0 {
		t.Fatalf("second sync should add nothing: %+v", second)
	}
	after2, _ := h.txs.ListByUser(context.Background(), 1)
	if len(after1) != len(after2) {
		t.Fatalf("store changed: %d -> %d", len(after1), len(after2))
	}
	for i := range after1 {
		if after1[i].ID != after2[i].ID || after1[i].Hash != after2[i].Hash {
			t.Fatalf("row %d changed: %+v vs %+v", i, after1[i], after2[i])
		}
	}
}

func TestSyncDedupKeepsFirst(t *testing.T) {
	h := newHarness(t, nil, nil)
	a := spend("0xdup", "1", jan1.Add(time.Hour))
	b := spend("0xdup", "7", jan1.Add(3*time.Hour))

	res := h.mustSync(t, a, b)
	if res.Added != 1 {
		t.Fatalf("expected 1 added, got %d", res.Added)
	}
	got, err := h.txs.GetByHash(context.Background(), "0xdup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected first-inserted amount 1, got %s", got.Amount)
	}
}

func TestSyncNormalizesWeiAndDirection(t *testing.T) {
	h := newHarness(t, nil, nil)
	res := h.mustSync(t,
		models.RawRecord{Hash: "0xa", From: "0xabc0000000000000000000000000000000000001", To: "0xdef", Value: "1000000000000000000"},
		models.RawRecord{Hash: "0xb", From: "0xdef", To: account, Value: "500000000000000000"},
	)
	if res.Added != 2 {
		t.Fatalf("expected 2 added, got %+v", res)
	}
	sent, recv := res.Transactions[0], res.Transactions[1]
	if sent.Type != models.TxnSent || sent.Amount.String() != "1" {
		t.Fatalf("unexpected sent tx %+v", sent)
	}
	if recv.Type != models.TxnReceived || recv.Amount.String() != "0.5" {
		t.Fatalf("unexpected received tx %+v", recv)
	}
}

func TestSyncSignedHexValueCannotOffsetSpend(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.setBudget(t, "1", jan1, feb1)

	neg := spend("0xneg", "", jan1.Add(time.Hour))
	neg.Value = "0x-de0b6b3a7640000"
	h.mustSync(t, neg, spend("0xover", "1.5", jan1.Add(2*time.Hour)))

	stored, err := h.txs.GetByHash(context.Background(), "0xneg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Amount.IsZero() {
		t.Fatalf("signed hex value should degrade to 0, got %s", stored.Amount)
	}
	u, _, err := h.budget.Usage(context.Background(), 1)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Used.String() != "1.5" || !u.Exceeded {
		t.Fatalf("overage hidden: %+v", u)
	}
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("expected one notification, got %d", n)
	}
}

func TestSyncEmptyFetch(t *testing.T) {
	h := newHarness(t, nil, nil)
	res := h.mustSync(t)
	if res.Fetched != 0 || res.Added != 0 || res.Message != "no transactions found" {
		t.Fatalf("unexpected result %+v", res)
	}
	txs, _ := h.txs.ListByUser(context.Background(), 1)
	if len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
}

func TestSyncDropsRecordsWithoutHash(t *testing.T) {
	h := newHarness(t, nil, nil)
	res := h.mustSync(t, spend("", "1", jan1), spend("0x1", "1", jan1))
	if res.Fetched != 2 || res.Added != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

type fetchFunc func(ctx context.Context, account string) ([]models.RawRecord, error)

func (f fetchFunc) Fetch(ctx context.Context, account string) ([]models.RawRecord, error) {
	return f(ctx, account)
}

func TestSyncFetchFailure(t *testing.T) {
	h := newHarness(t, nil, nil)
	cause := errors.New("explorer down")
	_, err := h.sync.Sync(context.Background(), 1, account, fetchFunc(func(context.Context, string) ([]models.RawRecord, error) {
		return nil, cause
	}))
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrFetchFailed wrapping cause, got %v", err)
	}
}

func TestSyncConcurrentSameUser(t *testing.T) {
	h := newHarness(t, nil, nil)
	recs := []models.RawRecord{spend("0x1", "1", jan1), spend("0x2", "1", jan1), spend("0x3", "1", jan1)}

	var wg sync.WaitGroup
	added := make([]int, 4)
	for i := range added {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.sync.Sync(context.Background(), 1, account, StaticFetcher(recs))
			if err != nil {
				t.Errorf("sync: %v", err)
				return
			}
			added[i] = res.Added
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range added {
		total += n
	}
	if total != 3 {
		t.Fatalf("expected 3 insertions across concurrent syncs, got %d", total)
	}
}

func TestBudgetSingleFire(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.setBudget(t, "1", jan1, feb1)

	h.mustSync(t, spend("0x1", "1", jan1.Add(time.Hour)), spend("0x2", "0.5", jan1.Add(2*time.Hour)))
	ns := h.notifications(t)
	if len(ns) != 1 || ns[0].Message != BudgetExceededMessage {
		t.Fatalf("expected exactly one notification, got %+v", ns)
	}

	h.mustSync(t, spend("0x3", "0.25", jan1.Add(3*time.Hour)))
	if ns := h.notifications(t); len(ns) != 1 {
		t.Fatalf("expected no additional notification, got %d", len(ns))
	}
}

func TestBudgetResetOnUpdate(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.setBudget(t, "1", jan1, feb1)
	h.mustSync(t, spend("0x1", "1.5", jan1.Add(time.Hour)))
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}

	b := h.setBudget(t, "1", feb1, mar1)
	if b.Notified {
		t.Fatal("replacing the budget must clear notified")
	}
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("new period should start clean, got %d notifications", n)
	}

	h.mustSync(t, spend("0x2", "2", feb1.Add(time.Hour)))
	if n := len(h.notifications(t)); n != 2 {
		t.Fatalf("expected a second notification, got %d", n)
	}
}

func TestBudgetPartialUpdateRearms(t *testing.T) {
	h := newHarness(t, nil, nil)
	b := h.setBudget(t, "1", jan1, feb1)
	h.mustSync(t, spend("0x1", "1.5", jan1.Add(time.Hour)))

	// Raising then lowering the cap re-arms the alert each time.
	higher := decimal.NewFromInt(10)
	if _, err := h.budget.Update(context.Background(), b.ID, models.BudgetPatch{Amount: &higher}); err != nil {
		t.Fatalf("update: %v", err)
	}
	lower := decimal.NewFromInt(1)
	if _, err := h.budget.Update(context.Background(), b.ID, models.BudgetPatch{Amount: &lower}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if n := len(h.notifications(t)); n != 2 {
		t.Fatalf("expected 2 notifications, got %d", n)
	}
}

func TestBudgetUpdateUnknownID(t *testing.T) {
	h := newHarness(t, nil, nil)
	amt := decimal.NewFromInt(1)
	_, err := h.budget.Update(context.Background(), "missing", models.BudgetPatch{Amount: &amt})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetValidation(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, err := h.budget.Set(context.Background(), models.Budget{UserID: 1, Amount: decimal.Zero, PeriodStart: feb1, PeriodEnd: jan1})
	var errs validate.Errs
	if !errors.As(err, &errs) || len(errs) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}

func TestUsageClampIndependentOfTrigger(t *testing.T) {
	u := ComputeUsage(
		models.Budget{Amount: decimal.NewFromInt(100), PeriodStart: jan1, PeriodEnd: feb1},
		[]models.Transaction{{Type: models.TxnSent, Amount: decimal.NewFromInt(150), Timestamp: jan1.Add(time.Hour)}},
	)
	if u.Percentage != 100 || !u.Exceeded || !u.Remaining.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("unexpected usage %+v", u)
	}

	h := newHarness(t, nil, nil)
	h.setBudget(t, "100", jan1, feb1)
	h.mustSync(t, spend("0x1", "150", jan1.Add(time.Hour)))
	usage, _, err := h.budget.Usage(context.Background(), 1)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Percentage != 100 || !usage.Exceeded {
		t.Fatalf("unexpected usage %+v", usage)
	}
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("trigger should fire on unclamped value, got %d notifications", n)
	}
}

func TestComputeUsage(t *testing.T) {
	b := models.Budget{Amount: decimal.NewFromInt(3), PeriodStart: jan1, PeriodEnd: feb1}
	cases := []struct {
		name   string
		txs    []models.Transaction
		used   string
		pct    int64
		exceed bool
	}{
		{"empty", nil, "0", 0, false},
		{"ignores received", []models.Transaction{{Type: models.TxnReceived, Amount: decimal.NewFromInt(5), Timestamp: jan1}}, "0", 0, false},
		{"ignores outside period", []models.Transaction{{Type: models.TxnSent, Amount: decimal.NewFromInt(5), Timestamp: mar1}}, "0", 0, false},
		{"inclusive bounds", []models.Transaction{
			{Type: models.TxnSent, Amount: decimal.NewFromInt(1), Timestamp: jan1},
			{Type: models.TxnSent, Amount: decimal.NewFromInt(1), Timestamp: feb1},
		}, "2", 67, false},
		{"exactly at cap", []models.Transaction{{Type: models.TxnSent, Amount: decimal.NewFromInt(3), Timestamp: jan1}}, "3", 100, false},
	}
	for _, tc := range cases {
		u := ComputeUsage(b, tc.txs)
		if u.Used.String() != tc.used || u.Percentage != tc.pct || u.Exceeded != tc.exceed {
			t.Fatalf("%s: got %+v", tc.name, u)
		}
	}
}

func TestUsageWithoutBudget(t *testing.T) {
	h := newHarness(t, nil, nil)
	u, b, err := h.budget.Usage(context.Background(), 1)
	if err != nil || b != nil {
		t.Fatalf("expected nil budget, got %v %v", b, err)
	}
	if !u.Used.IsZero() || u.Percentage != 0 || u.Exceeded {
		t.Fatalf("expected zero usage, got %+v", u)
	}
}

type failingNotes struct {
	repo.Notifications
	fail bool
}

func (f *failingNotes) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if f.fail {
		return models.Notification{}, errors.New("disk full")
	}
	return f.Notifications.Create(ctx, n)
}

func TestNotificationFailureRevertsFlag(t *testing.T) {
	store := memory.New()
	notes := &failingNotes{Notifications: store.Notifications, fail: true}
	store.Notifications = notes
	h := newHarnessWith(t, store, nil, nil)

	b := h.setBudget(t, "1", jan1, feb1)
	h.mustSync(t, spend("0x1", "2", jan1.Add(time.Hour)))

	got, _ := store.Budgets.GetByID(context.Background(), b.ID)
	if got.Notified {
		t.Fatal("flag must be reverted when the notification could not be stored")
	}

	notes.fail = false
	if _, err := h.budget.Evaluate(context.Background(), 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("expected retry to create the notification, got %d", n)
	}
}

type recorder struct {
	mu     sync.Mutex
	alerts []delivery.BudgetAlert
	err    error
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Deliver(_ context.Context, a delivery.BudgetAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestBudgetAlertIsDelivered(t *testing.T) {
	out := &recorder{}
	wp := worker.NewPool(1)
	h := newHarness(t, out, wp)

	h.setBudget(t, "1", jan1, feb1)
	h.mustSync(t, spend("0x1", "1.25", jan1.Add(time.Hour)))
	wp.Stop()

	if len(out.alerts) != 1 {
		t.Fatalf("expected one delivery, got %d", len(out.alerts))
	}
	a := out.alerts[0]
	if a.UserID != 1 || a.Overage.String() != "0.25" || a.Currency != "ETH" {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestDeliveryFailureDoesNotFailSync(t *testing.T) {
	out := &recorder{err: errors.New("smtp down")}
	wp := worker.NewPool(1)
	h := newHarness(t, out, wp)

	h.setBudget(t, "1", jan1, feb1)
	h.mustSync(t, spend("0x1", "2", jan1.Add(time.Hour)))
	wp.Stop()

	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("notification should be stored regardless of delivery, got %d", n)
	}
}

func TestCreateTransaction(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	tx, err := h.txs.Create(ctx, manual("0xm", "0.3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Type != models.TxnSent || tx.Status != models.TxnConfirmed || tx.Currency != "ETH" || tx.Category != models.CategoryUnlabeled {
		t.Fatalf("unexpected defaults %+v", tx)
	}
	if tx.Timestamp.IsZero() {
		t.Fatal("timestamp not defaulted")
	}

	if _, err := h.txs.Create(ctx, manual("0xm", "9")); !IsDuplicate(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	neg := manual("", "-1")
	neg.Status = "weird"
	_, err = h.txs.Create(ctx, neg)
	var errs validate.Errs
	if !errors.As(err, &errs) || len(errs) != 3 {
		t.Fatalf("expected three field errors, got %v", err)
	}
}

func TestCreateTransactionRequiresCanonicalFields(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.txs.Create(context.Background(), NewTransaction{UserID: 1, Hash: "0xonlyhash"})
	var errs validate.Errs
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Msg
	}
	for _, f := range []string{"from", "to", "amount", "status", "type"} {
		if got[f] != "required" {
			t.Fatalf("expected %s required, got %v", f, errs)
		}
	}
	if ok, _ := h.store.Transactions.Exists(context.Background(), "0xonlyhash"); ok {
		t.Fatal("rejected transaction must not be stored")
	}
}

func TestCreateTransactionTriggersBudget(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.setBudget(t, "1", jan1, feb1)
	in := manual("0xm", "2")
	in.Timestamp = jan1.Add(time.Hour)
	if _, err := h.txs.Create(context.Background(), in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := len(h.notifications(t)); n != 1 {
		t.Fatalf("expected notification after manual insert, got %d", n)
	}
}

func TestCategorized(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	for i, c := range []string{"DeFi", "DeFi", ""} {
		in := manual("0x"+strconv.Itoa(i), "1")
		in.Category = c
		in.Timestamp = jan1
		if _, err := h.txs.Create(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	groups, err := h.txs.Categorized(ctx, 1)
	if err != nil {
		t.Fatalf("categorized: %v", err)
	}
	if len(groups["DeFi"]) != 2 || len(groups[models.CategoryUnlabeled]) != 1 {
		t.Fatalf("unexpected groups %v", groups)
	}
	if groups[models.CategoryUnlabeled][0].Category != "Uncategorized" {
		t.Fatalf("manual add without category should be stored as Uncategorized, got %q", groups[models.CategoryUnlabeled][0].Category)
	}
}

func TestNotificationsCRUD(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	if _, err := h.notify.Create(ctx, 1, "  "); err == nil {
		t.Fatal("expected validation error for empty message")
	}
	n, err := h.notify.Create(ctx, 1, "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := h.notify.MarkRead(ctx, n.ID)
	if err != nil || !got.Read {
		t.Fatalf("mark read: %+v %v", got, err)
	}
	if _, err := h.notify.MarkRead(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
