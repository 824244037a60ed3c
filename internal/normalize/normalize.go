// Package normalize turns raw wallet/explorer records into canonical transactions.
//
// A single bad record never fails a batch: a missing hash drops the record,
// an unparseable amount becomes 0 and an unparseable timestamp becomes now.
package normalize

import (
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the wei->ETH exponent.
const EtherDecimals = 18

type Normalizer struct {
	Currency string
	Decimals int32
	Classify Classifier
	Now      func() time.Time
	Log      *slog.Logger
}

// New returns an ETH normalizer using classify, or the default address book when classify is nil.
func New(classify Classifier, log *slog.Logger) *Normalizer {
	if classify == nil {
		classify = StaticClassifier(DefaultAddressBook)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		Currency: models.DefaultCurrency,
		Decimals: EtherDecimals,
		Classify: classify,
		Now:      time.Now,
		Log:      log,
	}
}

// Normalize converts r for the tracked account. ok is false when the record has no hash.
func (n *Normalizer) Normalize(userID int64, account string, r models.RawRecord) (models.Transaction, bool) {
	hash := strings.TrimSpace(r.Hash)
	if hash == "" {
		n.Log.Warn("dropping raw record without hash", "from", r.From, "to", r.To)
		return models.Transaction{}, false
	}

	tx := models.Transaction{
		UserID:    userID,
		Hash:      hash,
		From:      strings.TrimSpace(r.From),
		To:        strings.TrimSpace(r.To),
		Amount:    n.amount(hash, r),
		Timestamp: n.timestamp(hash, r.TimeStamp.String()),
		Currency:  n.Currency,
		Status:    Status(r),
		Type:      direction(account, r),
	}

	counterparty := tx.To
	if tx.Type == models.TxnReceived {
		counterparty = tx.From
	}
	tx.Category = n.Classify(counterparty)
	if tx.Category == "" {
		tx.Category = models.CategoryOther
	}
	return tx, true
}

// Direction is sent when from equals the tracked account, ignoring case.
func Direction(account, from string) models.TransactionType {
	if account != "" && strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(account)) {
		return models.TxnSent
	}
	return models.TxnReceived
}

// direction prefers a type the wallet already derived and falls back to Direction.
func direction(account string, r models.RawRecord) models.TransactionType {
	if t, ok := models.ParseType(strings.TrimSpace(r.Type.String())); ok {
		return t
	}
	return Direction(account, r.From)
}

// HasType reports whether r carries a usable pre-derived direction.
func HasType(r models.RawRecord) bool {
	_, ok := models.ParseType(strings.TrimSpace(r.Type.String()))
	return ok
}

// Status maps explorer/wallet status flags to a transaction status.
func Status(r models.RawRecord) models.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(r.Status.String())) {
	case "confirmed", "completed", "success", "1":
		return models.TxnConfirmed
	case "failed", "error", "0":
		return models.TxnFailed
	case "pending":
		return models.TxnPending
	}
	isErr := strings.TrimSpace(r.IsError.String())
	receipt := strings.TrimSpace(r.TxReceiptStatus.String())
	switch {
	case isErr == "1" || receipt == "0":
		return models.TxnFailed
	case isErr == "0" || receipt == "1":
		return models.TxnConfirmed
	}
	return models.TxnPending
}

func (n *Normalizer) amount(hash string, r models.RawRecord) decimal.Decimal {
	if v := strings.TrimSpace(r.Value.String()); v != "" {
		base, ok := parseBaseUnits(v)
		if !ok {
			n.Log.Warn("unparseable value, defaulting amount to 0", "hash", hash, "value", v)
			return decimal.Zero
		}
		return base.Shift(-n.Decimals)
	}
	if a := strings.TrimSpace(r.Amount.String()); a != "" {
		d, err := decimal.NewFromString(a)
		if err != nil || d.IsNegative() {
			n.Log.Warn("unparseable amount, defaulting to 0", "hash", hash, "amount", a)
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// parseBaseUnits accepts non-negative decimal or 0x-prefixed hex integers.
func parseBaseUnits(v string) (decimal.Decimal, bool) {
	if digits, prefixed := hexDigits(v); prefixed {
		i, ok := new(big.Int).SetString(digits, 16)
		if !ok {
			return decimal.Zero, false
		}
		return decimal.NewFromBigInt(i, 0), true
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// hexDigits reports whether v is 0x-prefixed and returns the digits after the
// prefix, or "" when anything other than a hex digit follows (a sign, an underscore).
func hexDigits(v string) (digits string, prefixed bool) {
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
		return "", false
	}
	digits = v[2:]
	for _, c := range digits {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return "", true
		}
	}
	return digits, true
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func (n *Normalizer) timestamp(hash, s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return n.Now().UTC()
	}
	if secs, ok := unixValue(s); ok {
		// Values this large are milliseconds.
		if secs > 1e12 {
			return time.UnixMilli(secs).UTC()
		}
		return time.Unix(secs, 0).UTC()
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	n.Log.Warn("unparseable timestamp, using now", "hash", hash, "timestamp", s)
	return n.Now().UTC()
}

// unixValue parses base-10 seconds or milliseconds, or a 0x-prefixed hex value as
// some RPC nodes return. A leading zero does not switch to octal.
func unixValue(s string) (int64, bool) {
	if digits, prefixed := hexDigits(s); prefixed {
		if digits == "" {
			return 0, false
		}
		v, err := strconv.ParseInt(digits, 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
