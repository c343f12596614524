package decimal

import "testing"

func TestArithmetic(t *testing.T) {
	a := FromString("100.5")
	b := FromString("50.25")

	if got := a.Add(b).String(); got != "150.75" {
		t.Errorf("a+b = %s, want 150.75", got)
	}
	if got := a.Sub(b).String(); got != "50.25" {
		t.Errorf("a-b = %s, want 50.25", got)
	}
	if got := a.Mul(FromInt(2)).String(); got != "201" {
		t.Errorf("a*2 = %s, want 201", got)
	}
	if got := a.Div(FromInt(2)).String(); got != "50.25" {
		t.Errorf("a/2 = %s, want 50.25", got)
	}
	if got := a.Mul(Zero); !got.IsZero() {
		t.Errorf("a*0 = %s, want 0", got)
	}
	if got := a.Mul(One); !got.Equal(a) {
		t.Errorf("a*1 = %s, want %s", got, a)
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	a := FromString("12.34")
	b := FromString("5.67")
	if got := a.Add(b).Sub(b); !got.Equal(a) {
		t.Errorf("(a+b)-b = %s, want %s", got, a)
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "123.456", "-99.99", "0.00000001", "100"}
	for _, s := range cases {
		d := FromString(s)
		if got := FromString(d.String()); !got.Equal(d) {
			t.Errorf("round trip %q: got mantissa %d, want %d (rendered %q)", s, got.Mantissa(), d.Mantissa(), d.String())
		}
	}
}

func TestParseTruncatesExcessFractionalDigits(t *testing.T) {
	d := FromString("1.123456789")
	want := FromString("1.12345678")
	if !d.Equal(want) {
		t.Errorf("got %s, want %s", d, want)
	}
}

func TestParsePadsMissingFractionalDigits(t *testing.T) {
	d := FromString("1.5")
	if d.Mantissa() != 150000000 {
		t.Errorf("mantissa = %d, want 150000000", d.Mantissa())
	}
}

func TestParseNonNumericYieldsZero(t *testing.T) {
	for _, s := range []string{"", "abc", "  ", "$5"} {
		if got := FromString(s); !got.IsZero() {
			t.Errorf("FromString(%q) = %s, want 0", s, got)
		}
	}
}

func TestNegativeSign(t *testing.T) {
	d := FromString("-99.99")
	if !d.IsNegative() {
		t.Error("expected negative")
	}
	if got := d.Abs().String(); got != "99.99" {
		t.Errorf("abs = %s, want 99.99", got)
	}
}

func TestZeroAndOne(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() should be true")
	}
	if got := One.String(); got != "1" {
		t.Errorf("One.String() = %s, want 1", got)
	}
}

func TestOrdering(t *testing.T) {
	a := FromInt(10)
	b := FromInt(20)

	if !a.LessThan(b) {
		t.Error("10 < 20 should hold")
	}
	if !b.GreaterThan(a) {
		t.Error("20 > 10 should hold")
	}
	if a.GreaterThanOrEqual(b) {
		t.Error("10 >= 20 should not hold")
	}
	if a.LessThan(b) == b.LessThan(a) {
		t.Error("ordering should be antisymmetric for distinct values")
	}
}

func TestOverflowSaturates(t *testing.T) {
	max := FromMantissa(1<<63 - 1)
	got := max.Add(max)
	if got.Mantissa() != 1<<63-1 {
		t.Errorf("overflowing add should saturate to MaxInt64, got %d", got.Mantissa())
	}

	min := FromMantissa(-(1 << 62))
	if got := min.Mul(FromInt(100)).Mantissa(); got != -(1<<63 - 1) && got != -(1 << 63) {
		t.Errorf("overflowing mul should saturate, got %d", got)
	}
}

func TestDivByZero(t *testing.T) {
	if got := FromInt(5).Div(Zero); !got.IsZero() {
		t.Errorf("division by zero should return Zero, got %s", got)
	}
}

func TestMinMax(t *testing.T) {
	a, b := FromInt(3), FromInt(7)
	if !Min(a, b).Equal(a) {
		t.Error("Min(3,7) should be 3")
	}
	if !Max(a, b).Equal(b) {
		t.Error("Max(3,7) should be 7")
	}
}
