// Package decimal implements the fixed-point scalar used for every price,
// size, fee and PnL value in the trading fabric. Floats are a boundary
// concern only — adapters convert to/from Decimal at the edge and nowhere
// else.
package decimal

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Scale is the implicit number of fractional digits every Decimal carries.
const Scale int64 = 1e8

// Precision is the number of fractional digits accepted/rendered.
const Precision = 8

// Decimal is a signed fixed-point number: value = mantissa / Scale.
// All arithmetic happens on the int64 mantissa; overflow saturates to
// MaxInt64 / MinInt64 rather than wrapping silently.
type Decimal struct {
	mantissa int64
}

// Zero and One are the two named constants every caller reaches for.
var (
	Zero = Decimal{mantissa: 0}
	One  = Decimal{mantissa: Scale}
)

// FromInt builds a Decimal from an integer quantity (no fractional part).
func FromInt(v int64) Decimal {
	return Decimal{mantissa: saturatingMul(v, Scale)}
}

// FromFloat builds a Decimal from a float64, rounding to the nearest
// representable mantissa at Scale. This conversion is lossy by construction;
// callers crossing the float boundary must expect it.
func FromFloat(v float64) Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero
	}
	scaled := v * float64(Scale)
	if scaled >= math.MaxInt64 {
		return Decimal{mantissa: math.MaxInt64}
	}
	if scaled <= math.MinInt64 {
		return Decimal{mantissa: math.MinInt64}
	}
	return Decimal{mantissa: int64(math.Round(scaled))}
}

// FromString parses a decimal string: optional leading '-', an integer part,
// and up to Precision fractional digits (excess digits truncated, missing
// digits zero-padded). Non-numeric input yields Zero.
func FromString(s string) Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}

	var intVal int64
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return Zero
		}
		intVal = v
	}

	if len(fracPart) > Precision {
		fracPart = fracPart[:Precision]
	} else {
		fracPart = fracPart + strings.Repeat("0", Precision-len(fracPart))
	}

	var fracVal int64
	if fracPart != "" {
		v, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return Zero
		}
		fracVal = v
	}

	mantissa := saturatingAdd(saturatingMul(intVal, Scale), fracVal)
	if negative {
		mantissa = -mantissa
	}
	return Decimal{mantissa: mantissa}
}

// String renders the shortest form: trailing fractional zeros trimmed, and
// the decimal point elided entirely when the value is an integer.
func (d Decimal) String() string {
	abs := d.mantissa
	neg := abs < 0
	if neg {
		abs = -abs
	}

	intPart := abs / Scale
	fracPart := abs % Scale

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatInt(intPart, 10))

	if fracPart != 0 {
		frac := fmt.Sprintf("%0*d", Precision, fracPart)
		frac = strings.TrimRight(frac, "0")
		b.WriteByte('.')
		b.WriteString(frac)
	}

	return b.String()
}

// MarshalJSON renders the decimal as a JSON string, matching the
// string-encoded numeric fields every venue's wire format uses for price
// and size (avoiding float64 precision loss at the JSON boundary).
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number, since
// some venues (e.g. ccxt-bridged proxies) emit unquoted numeric fields.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*d = FromString(s)
	return nil
}

// Mantissa exposes the raw scaled integer, mainly for tests and adapters
// that need to round-trip through wire-level fixed point formats.
func (d Decimal) Mantissa() int64 { return d.mantissa }

// FromMantissa reconstructs a Decimal from a raw scaled integer.
func FromMantissa(m int64) Decimal { return Decimal{mantissa: m} }

// Float64 converts to float64. Lossy; document every call site that crosses
// this boundary.
func (d Decimal) Float64() float64 {
	return float64(d.mantissa) / float64(Scale)
}

// Add returns d + other, saturating on overflow.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{mantissa: saturatingAdd(d.mantissa, other.mantissa)}
}

// Sub returns d - other, saturating on overflow.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{mantissa: saturatingSub(d.mantissa, other.mantissa)}
}

// Mul returns d * other: the mantissa product is computed in 128 bits then
// shifted back down by Scale.
func (d Decimal) Mul(other Decimal) Decimal {
	neg := (d.mantissa < 0) != (other.mantissa < 0)
	hi, lo := bits.Mul64(uint64(absInt64(d.mantissa)), uint64(absInt64(other.mantissa)))
	q, _ := divSaturating(hi, lo, uint64(Scale))
	return fromUnsignedMantissa(q, neg)
}

// Div returns d / other. The numerator is pre-multiplied by Scale in 128
// bits before dividing, preserving precision. Division by zero returns Zero
// — callers needing insufficient-liquidity semantics (VWAP) check
// denominators explicitly before calling Div.
func (d Decimal) Div(other Decimal) Decimal {
	if other.mantissa == 0 {
		return Zero
	}
	neg := (d.mantissa < 0) != (other.mantissa < 0)
	hi, lo := bits.Mul64(uint64(absInt64(d.mantissa)), uint64(Scale))
	q, _ := divSaturating(hi, lo, uint64(absInt64(other.mantissa)))
	return fromUnsignedMantissa(q, neg)
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	if d.mantissa == math.MinInt64 {
		return Decimal{mantissa: math.MaxInt64}
	}
	return Decimal{mantissa: -d.mantissa}
}

// Abs returns |d|.
func (d Decimal) Abs() Decimal {
	if d.mantissa < 0 {
		return d.Neg()
	}
	return d
}

// IsZero, IsPositive, IsNegative are the sign predicates spec'd for every
// arithmetic boundary (risk checks, arbitrage thresholds).
func (d Decimal) IsZero() bool     { return d.mantissa == 0 }
func (d Decimal) IsPositive() bool { return d.mantissa > 0 }
func (d Decimal) IsNegative() bool { return d.mantissa < 0 }

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	switch {
	case d.mantissa < other.mantissa:
		return -1
	case d.mantissa > other.mantissa:
		return 1
	default:
		return 0
	}
}

func (d Decimal) LessThan(other Decimal) bool          { return d.Cmp(other) < 0 }
func (d Decimal) LessThanOrEqual(other Decimal) bool    { return d.Cmp(other) <= 0 }
func (d Decimal) GreaterThan(other Decimal) bool        { return d.Cmp(other) > 0 }
func (d Decimal) GreaterThanOrEqual(other Decimal) bool { return d.Cmp(other) >= 0 }
func (d Decimal) Equal(other Decimal) bool              { return d.mantissa == other.mantissa }

// Min and Max are small conveniences used throughout the unified arbitrage
// sizing math (max_size = min(bid qty, ask qty, position cap)).
func Min(a, b Decimal) Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

func Max(a, b Decimal) Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

func absInt64(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}

func saturatingSub(a, b int64) int64 {
	if b == math.MinInt64 {
		return saturatingAdd(a, math.MaxInt64)
	}
	return saturatingAdd(a, -b)
}

func saturatingMul(a, b int64) int64 {
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(uint64(absInt64(a)), uint64(absInt64(b)))
	if hi != 0 || lo > math.MaxInt64 {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return fromUnsignedMantissa(lo, neg).mantissa
}

// divSaturating divides the unsigned 128-bit value (hi, lo) by divisor,
// returning a quotient clamped to math.MaxUint64 range the caller already
// checks fits in an int64 via fromUnsignedMantissa.
func divSaturating(hi, lo, divisor uint64) (q, r uint64) {
	if divisor == 0 {
		return math.MaxUint64, 0
	}
	if hi >= divisor {
		// quotient would overflow 64 bits — saturate.
		return math.MaxUint64, 0
	}
	return bits.Div64(hi, lo, divisor)
}

func fromUnsignedMantissa(q uint64, neg bool) Decimal {
	if q > math.MaxInt64 {
		if neg {
			return Decimal{mantissa: math.MinInt64}
		}
		return Decimal{mantissa: math.MaxInt64}
	}
	if neg {
		return Decimal{mantissa: -int64(q)}
	}
	return Decimal{mantissa: int64(q)}
}
