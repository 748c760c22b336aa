package decimal

// ln2 is ln(2) to 50 significant digits, used to undo the power-of-two
// argument reduction performed by Ln.
var ln2 = MustNewFromString("0.69314718055994530941723212145817656807550013436026")

// Exp returns e^d. The LMSR engine only ever calls this on log-sum-exp
// shifted arguments (§4.2: "the engine never calls it on values that would
// overflow"), so no overflow guard is needed here beyond the reduction
// loop's defensive cap.
//
// Algorithm: pick k so that r = d / 2^k is tiny, evaluate e^r with a
// Taylor series (converges in a handful of terms for tiny r), then square
// the result k times to recover e^d. Every intermediate value is rounded
// to workingScale so repeated squaring does not blow up digit counts.
func Exp(d Decimal) Decimal {
	if d.IsZero() {
		return One
	}

	r := d
	k := 0
	for r.Abs().GreaterThan(reductionThreshold) && k < maxReductionSteps {
		r, _ = r.divWorking(Two)
		k++
	}

	result := expTaylor(r)

	for i := 0; i < k; i++ {
		result = result.Mul(result).Round(workingScale)
	}
	return result.Round(ExternalScale)
}

// expTaylor evaluates e^r via its power series for small r using working
// precision throughout.
func expTaylor(r Decimal) Decimal {
	term := One
	sum := One
	for n := int64(1); n <= 60; n++ {
		term, _ = term.Mul(r).divWorking(NewFromInt(n))
		next := sum.Add(term)
		if next.Equal(sum) {
			sum = next
			break
		}
		sum = next
	}
	return sum.Round(workingScale)
}

// Ln returns ln(d). Requires d > 0.
//
// Algorithm: repeatedly halve or double d until it falls in [0.5, 2], then
// evaluate ln of the reduced value with the fast-converging series
// ln(x) = 2*atanh(y), y = (x-1)/(x+1), and add back k*ln2 for the
// reduction performed.
func Ln(d Decimal) (Decimal, error) {
	if !d.IsPositive() {
		return Decimal{}, ErrLnDomain
	}
	if d.Equal(One) {
		return Zero, nil
	}

	x := d
	k := 0
	for x.GreaterThan(Two) && k < maxReductionSteps {
		x, _ = x.divWorking(Two)
		k++
	}
	half := MustNewFromString("0.5")
	for x.LessThan(half) && k > -maxReductionSteps {
		x = x.Mul(Two)
		k--
	}

	ln := lnAtanhSeries(x)
	kd := NewFromInt(int64(k))
	result := ln.Add(kd.Mul(ln2))
	return result.Round(ExternalScale), nil
}

// lnAtanhSeries computes ln(x) for x in roughly [0.5, 2] via
// ln(x) = 2*(y + y^3/3 + y^5/5 + ...), y = (x-1)/(x+1).
func lnAtanhSeries(x Decimal) Decimal {
	num := x.Sub(One)
	den := x.Add(One)
	y, _ := num.divWorking(den)
	ySq := y.Mul(y).Round(workingScale)

	term := y
	sum := y
	for n := int64(3); n <= 121; n += 2 {
		term = term.Mul(ySq).Round(workingScale)
		addend, _ := term.divWorking(NewFromInt(n))
		next := sum.Add(addend)
		if next.Equal(sum) {
			sum = next
			break
		}
		sum = next
	}
	return sum.Mul(Two).Round(workingScale)
}

// LogSumExp computes ln(Σ exp(xs[i])) using the shift-by-max trick
// mandated by §4.2: M = max(xs), result = M + ln(Σ exp(xs[i]-M)). This is
// the only way cost(q,b) and price(q,b,i) are allowed to sum exponentials.
func LogSumExp(xs []Decimal) (Decimal, error) {
	if len(xs) == 0 {
		return Decimal{}, ErrEmptyInput
	}

	m := xs[0]
	for _, x := range xs[1:] {
		if x.GreaterThan(m) {
			m = x
		}
	}

	sum := Zero
	for _, x := range xs {
		sum = sum.Add(Exp(x.Sub(m)))
	}

	lnSum, err := Ln(sum)
	if err != nil {
		return Decimal{}, err
	}
	return m.Add(lnSum), nil
}

// Shifted exponentials, exposed so the LMSR price functions can normalize
// the same shift-by-max terms that LogSumExp sums for cost.
func ShiftedExponentials(xs []Decimal) (shifted []Decimal, max Decimal) {
	max = xs[0]
	for _, x := range xs[1:] {
		if x.GreaterThan(max) {
			max = x
		}
	}
	shifted = make([]Decimal, len(xs))
	for i, x := range xs {
		shifted[i] = Exp(x.Sub(max))
	}
	return shifted, max
}
