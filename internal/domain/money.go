package domain

import (
	"fmt"
	"math"
	"strings"
)

// Money is an amount in the currency's minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) (Money, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if !validCurrency(cur) {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{Amount: amount, Currency: cur}, nil
}

func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	if (o.Amount > 0 && m.Amount > math.MaxInt64-o.Amount) || (o.Amount < 0 && m.Amount < math.MinInt64-o.Amount) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if o.Amount == math.MinInt64 {
		return Money{}, ErrAmountOverflow
	}
	return m.Add(Money{Amount: -o.Amount, Currency: o.Currency})
}

func (m Money) Mul(qty int64) (Money, error) {
	if qty == 0 || m.Amount == 0 {
		return Money{Currency: m.Currency}, nil
	}
	res := m.Amount * qty
	if res/qty != m.Amount {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: res, Currency: m.Currency}, nil
}

// Sum folds items into a total of the given currency.
func Sum(currency string, items ...Money) (Money, error) {
	total := Zero(currency)
	for _, it := range items {
		var err error
		if total, err = total.Add(it); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

func (m Money) String() string {
	exp := MinorUnits(m.Currency)
	if exp == 0 {
		return fmt.Sprintf("%d %s", m.Amount, m.Currency)
	}

	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	div := int64(math.Pow10(exp))
	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/div, exp, amount%div, m.Currency)
}

// MinorUnits is the number of decimal places of the currency.
func MinorUnits(currency string) int {
	switch currency {
	case "JPY", "KRW", "VND", "CLP", "ISK", "UGX":
		return 0
	case "BHD", "KWD", "JOD", "OMR", "TND", "IQD", "LYD":
		return 3
	default:
		return 2
	}
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
