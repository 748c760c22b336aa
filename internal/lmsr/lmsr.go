// Package lmsr implements the Logarithmic Market Scoring Rule automated
// market maker over an arbitrary number of outcomes.
//
// The LMSR was proposed by Robin Hanson and provides a bounded-loss,
// always-liquid cost function for prediction markets:
//
//	C(q) = b * ln(Σ exp(q_i / b))
//	p_i(q) = exp(q_i/b) / Σ_j exp(q_j/b)
//
// All monetary and quantity values use internal/decimal — never float64 —
// and every sum of exponentials goes through decimal.LogSumExp so that a
// market with large outstanding quantities never overflows (§4.2).
//
// This generalizes the binary-outcome LMSR used for weather derivatives
// (b*ln(exp(qYes/b)+exp(qNo/b))) to a length-n outcome vector, since
// prediction markets here are not restricted to yes/no.
package lmsr

import (
	"errors"

	"marketcore/internal/decimal"
)

var (
	// ErrInvalidB is returned when the liquidity parameter is not strictly positive.
	ErrInvalidB = errors.New("lmsr: liquidity parameter b must be positive")
	// ErrEmptyOutcomes is returned when the outcome vector has zero length.
	ErrEmptyOutcomes = errors.New("lmsr: outcome vector must have at least one entry")
	// ErrIndexOutOfRange is returned when an outcome index is not in [0, n).
	ErrIndexOutOfRange = errors.New("lmsr: outcome index out of range")
	// ErrLengthMismatch is returned when two vectors that must be the same length differ.
	ErrLengthMismatch = errors.New("lmsr: vector length mismatch")
	// ErrNegativeResult is returned when applying a trade vector would make a quantity negative.
	ErrNegativeResult = errors.New("lmsr: resulting outcome quantity would be negative")
	// ErrInsufficientOutstanding is returned when a sell would exceed outstanding quantity.
	ErrInsufficientOutstanding = errors.New("lmsr: insufficient outstanding quantity to sell")
)

// Quantities is an ordered outcome-quantity vector, q_0 .. q_{n-1}.
type Quantities []decimal.Decimal

// TradeVector has the same length as a Quantities vector; entries may be
// negative (sells), but q+Δq must remain component-wise non-negative.
type TradeVector []decimal.Decimal

func validate(q Quantities, b decimal.Decimal) error {
	if len(q) == 0 {
		return ErrEmptyOutcomes
	}
	if !b.IsPositive() {
		return ErrInvalidB
	}
	return nil
}

func scaledExponents(q Quantities, b decimal.Decimal) ([]decimal.Decimal, error) {
	xs := make([]decimal.Decimal, len(q))
	for i, qi := range q {
		x, err := qi.Div(b)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return xs, nil
}

// Cost computes C(q) = b * ln(Σ exp(q_i/b)) via log-sum-exp.
func Cost(q Quantities, b decimal.Decimal) (decimal.Decimal, error) {
	if err := validate(q, b); err != nil {
		return decimal.Decimal{}, err
	}
	xs, err := scaledExponents(q, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	lse, err := decimal.LogSumExp(xs)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return b.Mul(lse).Round(decimal.ExternalScale), nil
}

// Price computes the marginal price of outcome i: p_i(q) = exp(q_i/b) / Σ_j exp(q_j/b).
// Uses the shared shift-by-max exponentials so it cannot overflow for the
// same reason Cost cannot (§4.2).
func Price(q Quantities, b decimal.Decimal, i int) (decimal.Decimal, error) {
	if err := validate(q, b); err != nil {
		return decimal.Decimal{}, err
	}
	if i < 0 || i >= len(q) {
		return decimal.Decimal{}, ErrIndexOutOfRange
	}
	xs, err := scaledExponents(q, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	shifted, _ := decimal.ShiftedExponentials(xs)

	sum := decimal.Zero
	for _, s := range shifted {
		sum = sum.Add(s)
	}
	price, err := shifted[i].Div(sum)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return price, nil
}

// Prices computes the price of every outcome in one pass, guaranteeing
// Σ p_i == 1 up to rounding (§8).
func Prices(q Quantities, b decimal.Decimal) ([]decimal.Decimal, error) {
	if err := validate(q, b); err != nil {
		return nil, err
	}
	xs, err := scaledExponents(q, b)
	if err != nil {
		return nil, err
	}
	shifted, _ := decimal.ShiftedExponentials(xs)

	sum := decimal.Zero
	for _, s := range shifted {
		sum = sum.Add(s)
	}
	prices := make([]decimal.Decimal, len(shifted))
	for i, s := range shifted {
		p, err := s.Div(sum)
		if err != nil {
			return nil, err
		}
		prices[i] = p
	}
	return prices, nil
}

// TradeCost computes Δ = C(qAfter,b) - C(qBefore,b). Positive means the
// buyer pays; negative means the seller receives.
func TradeCost(qBefore, qAfter Quantities, b decimal.Decimal) (decimal.Decimal, error) {
	if len(qBefore) != len(qAfter) {
		return decimal.Decimal{}, ErrLengthMismatch
	}
	costBefore, err := Cost(qBefore, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	costAfter, err := Cost(qAfter, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return costAfter.Sub(costBefore), nil
}

// ApplyTradeVector returns q + Δq, failing if the lengths differ or any
// resulting quantity would be negative.
func ApplyTradeVector(q Quantities, dq TradeVector) (Quantities, error) {
	if len(q) != len(dq) {
		return nil, ErrLengthMismatch
	}
	out := make(Quantities, len(q))
	for i := range q {
		v := q[i].Add(dq[i])
		if v.IsNegative() {
			return nil, ErrNegativeResult
		}
		out[i] = v
	}
	return out, nil
}

// Quote is the result of pricing a hypothetical buy or sell of a single
// outcome before it is committed to a book.
type Quote struct {
	InstantPrice decimal.Decimal
	TradeCost    decimal.Decimal
	QAfter       Quantities
}

func deltaVector(n, i int, delta decimal.Decimal) TradeVector {
	dq := make(TradeVector, n)
	for j := range dq {
		dq[j] = decimal.Zero
	}
	dq[i] = delta
	return dq
}

// QuoteBuy prices buying qty additional shares of outcome i.
func QuoteBuy(q Quantities, b decimal.Decimal, i int, qty decimal.Decimal) (Quote, error) {
	if err := validate(q, b); err != nil {
		return Quote{}, err
	}
	if i < 0 || i >= len(q) {
		return Quote{}, ErrIndexOutOfRange
	}
	dq := deltaVector(len(q), i, qty)
	qAfter, err := ApplyTradeVector(q, dq)
	if err != nil {
		return Quote{}, err
	}
	cost, err := TradeCost(q, qAfter, b)
	if err != nil {
		return Quote{}, err
	}
	price, err := Price(qAfter, b, i)
	if err != nil {
		return Quote{}, err
	}
	return Quote{InstantPrice: price, TradeCost: cost, QAfter: qAfter}, nil
}

// QuoteSell prices selling qty shares of outcome i. Fails with
// ErrInsufficientOutstanding if q[i]-qty would be negative.
func QuoteSell(q Quantities, b decimal.Decimal, i int, qty decimal.Decimal) (Quote, error) {
	if err := validate(q, b); err != nil {
		return Quote{}, err
	}
	if i < 0 || i >= len(q) {
		return Quote{}, ErrIndexOutOfRange
	}
	if q[i].Sub(qty).IsNegative() {
		return Quote{}, ErrInsufficientOutstanding
	}
	dq := deltaVector(len(q), i, qty.Neg())
	qAfter, err := ApplyTradeVector(q, dq)
	if err != nil {
		return Quote{}, err
	}
	cost, err := TradeCost(q, qAfter, b)
	if err != nil {
		return Quote{}, err
	}
	price, err := Price(qAfter, b, i)
	if err != nil {
		return Quote{}, err
	}
	return Quote{InstantPrice: price, TradeCost: cost, QAfter: qAfter}, nil
}

// MaxLoss returns the worst-case maker loss bound b*ln(n) for an n-outcome market.
func MaxLoss(n int, b decimal.Decimal) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Decimal{}, ErrEmptyOutcomes
	}
	if !b.IsPositive() {
		return decimal.Decimal{}, ErrInvalidB
	}
	lnN, err := decimal.Ln(decimal.NewFromInt(int64(n)))
	if err != nil {
		return decimal.Decimal{}, err
	}
	return b.Mul(lnN).Round(decimal.ExternalScale), nil
}
