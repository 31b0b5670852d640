// README: Common money value object used by the payments passthrough.
package types

// Money is an amount in the currency's smallest unit (cents for usd).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) Valid() bool {
	return m.Amount > 0 && len(m.Currency) == 3
}
