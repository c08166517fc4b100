// Package pricing holds the money arithmetic of an order. All amounts are integer
// minor currency units and every division floors.
package pricing

// Rules are the loyalty percentages applied to the discounted subtotal.
type Rules struct {
	CashbackPercent int64
	MaxSpendPercent int64
}

// DefaultRules grants 10% cashback and lets bonus cover up to 30%.
var DefaultRules = Rules{CashbackPercent: 10, MaxSpendPercent: 30}

// Line is one priced cart line.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Total returns unit price times quantity.
func (l Line) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// UnitPrice is base price plus variant delta plus the sum of selected addon prices.
func UnitPrice(base, variantDelta int64, addonPrices ...int64) int64 {
	unit := base + variantDelta
	for _, p := range addonPrices {
		unit += p
	}
	return unit
}

// Subtotal sums line totals.
func Subtotal(lines []Line) int64 {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Total()
	}
	return subtotal
}

// PromoDiscount floors base*percent/100.
func PromoDiscount(subtotal, deliveryFee int64, percent int, includeDelivery bool) int64 {
	base := subtotal
	if includeDelivery {
		base += deliveryFee
	}
	if base <= 0 || percent <= 0 {
		return 0
	}
	return base * int64(percent) / 100
}

func discounted(subtotal, discount int64) int64 {
	if d := subtotal - discount; d > 0 {
		return d
	}
	return 0
}

// MaxBonusSpend is the share of the discounted subtotal bonus may cover.
func (r Rules) MaxBonusSpend(subtotal, discount int64) int64 {
	return discounted(subtotal, discount) * r.MaxSpendPercent / 100
}

// BonusToUse caps the requested amount by the balance and MaxBonusSpend.
func (r Rules) BonusToUse(requested, balance, subtotal, discount int64) int64 {
	use := requested
	if balance < use {
		use = balance
	}
	if limit := r.MaxBonusSpend(subtotal, discount); limit < use {
		use = limit
	}
	if use < 0 {
		return 0
	}
	return use
}

// BonusEarned is the cashback granted for an order.
func (r Rules) BonusEarned(subtotal, discount int64) int64 {
	return discounted(subtotal, discount) * r.CashbackPercent / 100
}

// Input carries everything Compute needs.
type Input struct {
	Lines          []Line
	DeliveryFee    int64
	Discount       int64
	RequestedBonus int64
	BonusBalance   int64
}

// Totals is the money breakdown of an order.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Discount    int64 `json:"discount"`
	BonusUsed   int64 `json:"bonus_used"`
	BonusEarned int64 `json:"bonus_earned"`
	Total       int64 `json:"total"`
}

// Compute derives all order totals. Discount must come from PromoDiscount for the same subtotal.
func (r Rules) Compute(in Input) Totals {
	subtotal := Subtotal(in.Lines)
	bonusUsed := r.BonusToUse(in.RequestedBonus, in.BonusBalance, subtotal, in.Discount)

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: in.DeliveryFee,
		Discount:    in.Discount,
		BonusUsed:   bonusUsed,
		BonusEarned: r.BonusEarned(subtotal, in.Discount),
		Total:       subtotal + in.DeliveryFee - in.Discount - bonusUsed,
	}
}
