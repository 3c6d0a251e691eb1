// Package pricing turns a media base rate and its linked price rules into a
// per-day price for a date range.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// MoneyPlaces is the number of decimal places money is rounded to.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Rule is the subset of a price rule the calculation needs.
type Rule struct {
	ID        uint64
	Name      string
	StartDate types.Date
	EndDate   types.Date
	ValuePct  int
}

// AppliedDiscount records one rule's contribution to a quote.
type AppliedDiscount struct {
	RuleID         uint64          `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	ValuePct       int             `json:"value_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// Quote is the pricing breakdown for one media over an inclusive range.
type Quote struct {
	MediaID          uint64            `json:"media_id"`
	StartDate        types.Date        `json:"start_date"`
	EndDate          types.Date        `json:"end_date"`
	BasePricePerDay  decimal.Decimal   `json:"base_price_per_day"`
	FinalPricePerDay decimal.Decimal   `json:"final_price_per_day"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	TotalDays        int               `json:"total_days"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
}

// TotalDays counts the days of [start, end], both ends included.
func TotalDays(start, end types.Date) int {
	return end.DaysSince(start) + 1
}

// Calculate prices base over [start, end]. Every rule whose window touches the
// range discounts value_pct of the untouched base, so rule order does not
// matter. Only the reported amounts are rounded; sums keep full precision.
func Calculate(base decimal.Decimal, rules []Rule, start, end types.Date) (Quote, error) {
	if start.IsZero() || end.IsZero() {
		return Quote{}, fmt.Errorf("start and end dates are required")
	}
	if end.Before(start) {
		return Quote{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	if base.IsNegative() {
		return Quote{}, fmt.Errorf("base price cannot be negative")
	}

	days := TotalDays(start, end)
	running := base
	applied := make([]AppliedDiscount, 0, len(rules))
	for _, rule := range rules {
		if !types.Overlaps(rule.StartDate, rule.EndDate, start, end) {
			continue
		}
		discount := base.Mul(decimal.NewFromInt(int64(rule.ValuePct))).Div(hundred)
		running = running.Sub(discount)
		applied = append(applied, AppliedDiscount{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			ValuePct:       rule.ValuePct,
			DiscountAmount: discount.Round(MoneyPlaces),
		})
	}
	if running.IsNegative() {
		running = decimal.Zero
	}

	return Quote{
		StartDate:        start,
		EndDate:          end,
		BasePricePerDay:  base.Round(MoneyPlaces),
		FinalPricePerDay: running.Round(MoneyPlaces),
		AppliedDiscounts: applied,
		TotalDays:        days,
		Subtotal:         running.Mul(decimal.NewFromInt(int64(days))).Round(MoneyPlaces),
	}, nil
}

// Percent returns round(amount * pct / 100) to MoneyPlaces.
func Percent(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(MoneyPlaces)
}
