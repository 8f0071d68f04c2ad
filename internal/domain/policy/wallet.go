package policy

import (
	"github.com/shopspring/decimal"
)

// RoundQ rounds a Q amount to one decimal place. Every amount is rounded
// before any comparison or storage; Q values never carry more precision.
func RoundQ(v decimal.Decimal) decimal.Decimal {
	return v.Round(1)
}

// Split is the outcome of dividing a credit between the two wallets.
type Split struct {
	ToMain  decimal.Decimal
	ToKarma decimal.Decimal
}

// SplitCredit decides how a credit divides between the main wallet (capped
// at the monthly target) and the karma overflow wallet.
//
// Rules, in order:
//  1. target == 0 (managers without a quota): everything to main.
//  2. main + amount <= target: everything to main.
//  3. main >= target: everything to karma.
//  4. otherwise the credit straddles the target: main is filled up to the
//     target, the remainder overflows to karma.
func SplitCredit(mainBalance decimal.Decimal, target int, amount decimal.Decimal) Split {
	amount = RoundQ(amount)
	targetQ := decimal.NewFromInt(int64(target))

	switch {
	case target == 0:
		return Split{ToMain: amount, ToKarma: decimal.Zero}
	case mainBalance.Add(amount).LessThanOrEqual(targetQ):
		return Split{ToMain: amount, ToKarma: decimal.Zero}
	case mainBalance.GreaterThanOrEqual(targetQ):
		return Split{ToMain: decimal.Zero, ToKarma: amount}
	default:
		toMain := RoundQ(targetQ.Sub(mainBalance))
		return Split{ToMain: toMain, ToKarma: RoundQ(amount.Sub(toMain))}
	}
}

// KarmaBurn returns how much karma the rollover burns: exactly half the
// balance, rounded to one decimal.
func KarmaBurn(karmaBalance decimal.Decimal) decimal.Decimal {
	return RoundQ(karmaBalance.Mul(decimal.NewFromFloat(0.5)))
}
