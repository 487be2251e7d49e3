package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// amountFields lists the money fields normalized per collection.
var amountFields = map[enums.Collection][]string{
	enums.CollectionPayments: {"amount"},
	enums.CollectionExpenses: {"amount"},
	enums.CollectionRooms:    {"rent", "deposit"},
	enums.CollectionTenants:  {"rent", "deposit"},
}

func parseAmount(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(val, ",", "")))
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

// normalizeAmounts rewrites every present money field as a non-negative
// two-decimal JSON number.
func normalizeAmounts(c enums.Collection, rec docstore.Record) error {
	for _, field := range amountFields[c] {
		raw, ok := rec[field]
		if !ok || raw == nil {
			continue
		}
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			delete(rec, field)
			continue
		}
		d, err := parseAmount(raw)
		if err != nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a number", field).
				WithDetails(map[string]any{"field": field})
		}
		if d.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s cannot be negative", field).
				WithDetails(map[string]any{"field": field})
		}
		rec[field] = json.Number(d.StringFixed(2))
	}
	return nil
}

func amountOf(rec docstore.Record, field string) decimal.Decimal {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return decimal.Zero
	}
	d, err := parseAmount(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PaymentPeriod selects payments by month and year; zero values match all.
type PaymentPeriod struct {
	Month int
	Year  int
}

// StatusTotal aggregates payments of one status.
type StatusTotal struct {
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

// PaymentSummary totals a hostel's payments by status.
type PaymentSummary struct {
	HostelID    string                 `json:"hostelId,omitempty"`
	Month       int                    `json:"month,omitempty"`
	Year        int                    `json:"year,omitempty"`
	Count       int                    `json:"count"`
	Total       string                 `json:"total"`
	Collected   string                 `json:"collected"`
	Outstanding string                 `json:"outstanding"`
	ByStatus    map[string]StatusTotal `json:"byStatus"`
}

// monthOf reads the month of a payment as 1-12, accepting numbers, month
// names and, as a fallback, the date or createdAt timestamp.
func monthOf(rec docstore.Record) int {
	switch raw := rec["month"].(type) {
	case json.Number:
		if n, err := raw.Int64(); err == nil {
			return int(n)
		}
	case float64:
		return int(raw)
	case int:
		return raw
	case string:
		trimmed := strings.TrimSpace(raw)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n
		}
		for m := time.January; m <= time.December; m++ {
			name := m.String()
			if strings.EqualFold(trimmed, name) || strings.EqualFold(trimmed, name[:3]) {
				return int(m)
			}
		}
	}
	if t, ok := paymentTime(rec); ok {
		return int(t.Month())
	}
	return 0
}

func yearOf(rec docstore.Record) int {
	switch raw := rec["year"].(type) {
	case json.Number:
		if n, err := raw.Int64(); err == nil {
			return int(n)
		}
	case float64:
		return int(raw)
	case int:
		return raw
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return n
		}
	}
	if t, ok := paymentTime(rec); ok {
		return t.Year()
	}
	return 0
}

func paymentTime(rec docstore.Record) (time.Time, bool) {
	for _, field := range []string{"date", "paymentDate", "createdAt"} {
		if t, ok := rec.Time(field); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func summarize(hostelID string, period PaymentPeriod, payments []docstore.Record) *PaymentSummary {
	total, collected := decimal.Zero, decimal.Zero
	byStatus := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, s := range enums.PaymentStatuses() {
		byStatus[s.String()] = decimal.Zero
	}
	n := 0
	for _, p := range payments {
		if period.Month != 0 && monthOf(p) != period.Month {
			continue
		}
		if period.Year != 0 && yearOf(p) != period.Year {
			continue
		}
		status := p.String("status")
		if status == "" {
			status = enums.PaymentStatusPending.String()
		}
		amount := amountOf(p, "amount")
		n++
		total = total.Add(amount)
		byStatus[status] = byStatus[status].Add(amount)
		counts[status]++
		if status == enums.PaymentStatusPaid.String() || status == enums.PaymentStatusApproved.String() {
			collected = collected.Add(amount)
		}
	}
	out := &PaymentSummary{
		HostelID:    hostelID,
		Month:       period.Month,
		Year:        period.Year,
		Count:       n,
		Total:       total.StringFixed(2),
		Collected:   collected.StringFixed(2),
		Outstanding: total.Sub(collected).StringFixed(2),
		ByStatus:    map[string]StatusTotal{},
	}
	for status, amount := range byStatus {
		out.ByStatus[status] = StatusTotal{Count: counts[status], Amount: amount.StringFixed(2)}
	}
	return out
}
