// Package pricing derives order totals from cart lines.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
)

// DefaultFeeRate is the processing fee added on top of the subtotal.
var DefaultFeeRate = decimal.RequireFromString("0.02")

var maxMinor = decimal.NewFromInt(math.MaxInt64)

type Quote struct {
	Subtotal int64
	Fees     int64
	Total    int64
}

type Calculator struct {
	FeeRate decimal.Decimal
}

func NewCalculator(feeRate decimal.Decimal) Calculator {
	return Calculator{FeeRate: feeRate}
}

// Price computes subtotal, fees and total for items.
// Fees are rounded half away from zero to the minor unit.
func (c Calculator) Price(items []entity.LineItem) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, fault.Validation(fault.CodeEmptyCart, nil)
	}

	subtotal := decimal.Zero
	for i, it := range items {
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			return Quote{}, fault.Validation(fault.CodeInvalidItem,
				fmt.Errorf("item %d (%s): price %d qty %d", i, it.ProductID, it.UnitPrice, it.Quantity))
		}
		subtotal = subtotal.Add(decimal.NewFromInt(it.UnitPrice).Mul(decimal.NewFromInt(it.Quantity)))
		if subtotal.GreaterThan(maxMinor) {
			return Quote{}, fault.Validation(fault.CodeInvalidItem,
				fmt.Errorf("item %d (%s): subtotal out of range", i, it.ProductID))
		}
	}

	// Totals must stay representable in the minor unit.
	fees := subtotal.Mul(c.FeeRate).Round(0)
	total := subtotal.Add(fees)
	if total.GreaterThan(maxMinor) || total.IsNegative() {
		return Quote{}, fault.Validation(fault.CodeInvalidItem,
			fmt.Errorf("total %s out of range", total))
	}
	return Quote{Subtotal: subtotal.IntPart(), Fees: fees.IntPart(), Total: total.IntPart()}, nil
}
