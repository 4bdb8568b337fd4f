package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount rendered with exactly two decimals. The
// database scan restores whatever exponent the driver picked (sqlite hands
// back 50 for 50.00), so the scale is forced at the serialization boundary
// instead of being trusted from storage.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{d} }

func (m Money) String() string { return m.Decimal.StringFixed(2) }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.StringFixed(2))
}

func (m Money) Add(other Money) Money { return Money{m.Decimal.Add(other.Decimal)} }

// Times scales the amount by a line quantity.
func (m Money) Times(qty uint) Money {
	return Money{m.Decimal.Mul(decimal.NewFromInt(int64(qty)))}
}
