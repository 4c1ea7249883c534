package billing

// Pricer converts token usage into a balance cost. The rate is expressed
// per thousand tokens and fractional token counts are charged
// proportionally, so a 500 token answer costs half the unit price.
type Pricer struct {
	unitPricePer1K float64
}

// NewPricer creates a pricer with the given per-1K-token rate
func NewPricer(unitPricePer1K float64) *Pricer {
	return &Pricer{unitPricePer1K: unitPricePer1K}
}

// CostForTokens returns the cost of a response that used the given number
// of tokens
func (p *Pricer) CostForTokens(tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000.0 * p.unitPricePer1K
}

// UnitPrice returns the configured per-1K-token rate
func (p *Pricer) UnitPrice() float64 {
	return p.unitPricePer1K
}
