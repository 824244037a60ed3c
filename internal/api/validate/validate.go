package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// Positive rejects zero and negative amounts.
func Positive(field string, v decimal.Decimal) *ErrField {
	if !v.IsPositive() {
		return &ErrField{Field: field, Msg: "must be > 0"}
	}
	return nil
}

func NonNegative(field string, v decimal.Decimal) *ErrField {
	if v.IsNegative() {
		return &ErrField{Field: field, Msg: "must be >= 0"}
	}
	return nil
}

// RequiredNonNegative rejects a missing amount as well as a negative one.
func RequiredNonNegative(field string, v *decimal.Decimal) *ErrField {
	if v == nil {
		return &ErrField{Field: field, Msg: "required"}
	}
	return NonNegative(field, *v)
}

func RequiredTime(field string, t time.Time) *ErrField {
	if t.IsZero() {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

// After requires end to fall strictly after start. Missing bounds are left to RequiredTime.
func After(field string, start, end time.Time) *ErrField {
	if start.IsZero() || end.IsZero() || end.After(start) {
		return nil
	}
	return &ErrField{Field: field, Msg: "must be after periodStart"}
}

// Collect drops nil results, returning nil when everything passed.
func Collect(checks ...*ErrField) Errs {
	var errs Errs
	for _, c := range checks {
		if c != nil {
			errs = append(errs, *c)
		}
	}
	return errs
}
