package utils

import (
	"math"
	"strconv"
)

// Money is an amount in the operating currency, kept at two decimal places.
type Money float64

func NewMoney(v float64) Money {
	return Money(math.Round(v*100) / 100)
}

func (m Money) Float64() float64 {
	return float64(m)
}

// MarshalJSON always renders two decimals, e.g. 150.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(math.Round(float64(m)*100)/100, 'f', 2, 64)), nil
}
