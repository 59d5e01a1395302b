package main

import "github.com/holiman/uint256"

// collateralPrice is the fixed collateral price, in debt units, used until a
// price oracle feed is read.
const collateralPrice = 45000

// collateralRatio returns collateral*price*100/debt as a percentage. ok is
// false when there is no debt.
func collateralRatio(collateral, debt, price uint64) (ratio *uint256.Int, ok bool) {
	if debt == 0 {
		return nil, false
	}
	ratio = uint256.NewInt(collateral)
	ratio.Mul(ratio, uint256.NewInt(price))
	ratio.Mul(ratio, uint256.NewInt(100))
	ratio.Div(ratio, uint256.NewInt(debt))
	return ratio, true
}
