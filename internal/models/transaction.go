package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnSent     TransactionType = "sent"
	TxnReceived TransactionType = "received"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnConfirmed TransactionStatus = "confirmed"
	TxnFailed    TransactionStatus = "failed"
)

const (
	DefaultCurrency   = "ETH"
	CategoryOther     = "Other"
	CategoryUnlabeled = "Uncategorized"
)

// Transaction is one on-chain transfer attributed to the tracked account.
// Hash is the dedup key.
type Transaction struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"userId"`
	Hash      string            `json:"hash"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Amount    decimal.Decimal   `json:"amount"`
	Timestamp time.Time         `json:"timestamp"`
	Currency  string            `json:"currency"`
	Category  string            `json:"category"`
	Status    TransactionStatus `json:"status"`
	Type      TransactionType   `json:"type"`
}

// ParseStatus accepts the canonical statuses plus "completed" as an alias of confirmed.
func ParseStatus(s string) (TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TxnPending, true
	case "confirmed", "completed":
		return TxnConfirmed, true
	case "failed":
		return TxnFailed, true
	}
	return "", false
}

func ParseType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent":
		return TxnSent, true
	case "received":
		return TxnReceived, true
	}
	return "", false
}

// InPeriod reports whether the transaction falls within [start, end], both inclusive.
func (t Transaction) InPeriod(start, end time.Time) bool {
	return !t.Timestamp.Before(start) && !t.Timestamp.After(end)
}
