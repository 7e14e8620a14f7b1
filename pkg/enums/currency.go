package enums

// Currency is the settlement currency of an order. Every shop bills in euro.
type Currency string

const CurrencyEUR Currency = "EUR"

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyEUR:
		return true
	default:
		return false
	}
}
