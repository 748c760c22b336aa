// Package decimal provides the fixed-precision decimal arithmetic that
// every monetary and quantity value in the matching core flows through.
// It wraps github.com/shopspring/decimal for storage, comparison, and the
// four basic operations, and adds Ln/Exp/LogSumExp on top in pure decimal
// arithmetic (argument reduction plus a Taylor series) rather than via
// float64 round-tripping, so that 18 fractional digits of precision survive
// a cost/price computation. Floating point never appears on this path.
package decimal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ExternalScale is the number of fractional digits used when formatting a
// Decimal for the wire (§4.1, §6: "fixed-point strings with up to 18
// fractional digits, no exponent").
const ExternalScale = 18

// workingScale is the internal guard precision used while computing Ln/Exp
// so that rounding in intermediate steps does not erode ExternalScale by
// the time the final Round(ExternalScale) happens.
const workingScale = 40

// reductionThreshold bounds the magnitude handed to the exp Taylor series
// after argument reduction; small enough that a couple dozen terms easily
// clear workingScale precision.
var reductionThreshold = decimal.New(1, -10) // 10^-10

// maxReductionSteps bounds the argument-reduction loops in Ln and Exp. The
// LMSR engine only ever calls Exp on log-sum-exp-shifted arguments (which
// are <= 0 and small in practice), so this is a defensive ceiling, not a
// value reached in normal operation.
const maxReductionSteps = 400

var (
	// ErrDivisionByZero is returned by Div when the divisor is zero.
	ErrDivisionByZero = errors.New("decimal: division by zero")
	// ErrLnDomain is returned by Ln when its argument is not strictly positive.
	ErrLnDomain = errors.New("decimal: ln is only defined for strictly positive values")
	// ErrEmptyInput is returned by LogSumExp when given no terms.
	ErrEmptyInput = errors.New("decimal: log-sum-exp requires at least one term")
	// ErrParse is returned when a string does not parse as a fixed-point decimal.
	ErrParse = errors.New("decimal: invalid decimal string")
)

// Decimal is an immutable fixed-precision signed decimal value.
type Decimal struct {
	v decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{v: decimal.Zero}

// One is the multiplicative identity.
var One = Decimal{v: decimal.NewFromInt(1)}

// Two is provided because argument reduction halves/doubles by it often enough to be worth naming.
var Two = Decimal{v: decimal.NewFromInt(2)}

// NewFromInt builds a Decimal from an integer.
func NewFromInt(i int64) Decimal {
	return Decimal{v: decimal.NewFromInt(i)}
}

// NewFromString parses a fixed-point decimal string. Scientific notation is
// rejected implicitly by shopspring/decimal's parser only insofar as it
// still parses valid exponent forms; callers on the external boundary
// should reject those before they reach here (see §6).
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return Decimal{v: d}, nil
}

// MustNewFromString is NewFromString but panics on error; intended for
// tests and compile-time constant tables, not request-path code.
func MustNewFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders d as a fixed-point string with exactly ExternalScale
// fractional digits and no exponent (§4.1, §6).
func (d Decimal) String() string {
	return d.v.StringFixed(ExternalScale)
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal { return Decimal{v: d.v.Add(other.v)} }

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal { return Decimal{v: d.v.Sub(other.v)} }

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal { return Decimal{v: d.v.Mul(other.v)} }

// Neg returns -d.
func (d Decimal) Neg() Decimal { return Decimal{v: d.v.Neg()} }

// Abs returns |d|.
func (d Decimal) Abs() Decimal { return Decimal{v: d.v.Abs()} }

// Div returns d / other rounded to ExternalScale fractional digits.
func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.v.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{v: d.v.DivRound(other.v, ExternalScale)}, nil
}

func (d Decimal) divWorking(other Decimal) (Decimal, error) {
	if other.v.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{v: d.v.DivRound(other.v, workingScale)}, nil
}

// Round rounds d to the given number of fractional digits.
func (d Decimal) Round(places int32) Decimal { return Decimal{v: d.v.Round(places)} }

// Cmp implements a total order: -1 if d<other, 0 if equal, 1 if d>other.
func (d Decimal) Cmp(other Decimal) int { return d.v.Cmp(other.v) }

// Equal reports whether d == other.
func (d Decimal) Equal(other Decimal) bool { return d.v.Equal(other.v) }

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.v.LessThan(other.v) }

// LessThanOrEqual reports whether d <= other.
func (d Decimal) LessThanOrEqual(other Decimal) bool { return d.v.LessThanOrEqual(other.v) }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.v.GreaterThan(other.v) }

// GreaterThanOrEqual reports whether d >= other.
func (d Decimal) GreaterThanOrEqual(other Decimal) bool { return d.v.GreaterThanOrEqual(other.v) }

// IsZero reports whether d == 0.
func (d Decimal) IsZero() bool { return d.v.IsZero() }

// IsNegative reports whether d < 0.
func (d Decimal) IsNegative() bool { return d.v.IsNegative() }

// IsPositive reports whether d > 0.
func (d Decimal) IsPositive() bool { return d.v.IsPositive() }

// InexactFloat64 exposes a float64 approximation for non-monetary uses
// (logging, metrics sampling). Never use this on a value that will be
// added back into monetary state.
func (d Decimal) InexactFloat64() float64 { return d.v.InexactFloat64() }
