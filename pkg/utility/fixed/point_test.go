package fixed

import "testing"

func TestFixedPoint_Arithmetic(t *testing.T) {
	a := FromInt(15, 1)
	b := FromInt(5, 1)

	if got := a.Add(b); !got.Eq(FromInt(2, 0)) {
		t.Errorf("Expected 2, got %s", got.String())
	}
	if got := a.Sub(b); !got.Eq(One) {
		t.Errorf("Expected 1, got %s", got.String())
	}
	if got := a.Mul(b); !got.Eq(FromFloat64(0.75)) {
		t.Errorf("Expected 0.75, got %s", got.String())
	}
	if got := a.Div(b); !got.Eq(FromInt(3, 0)) {
		t.Errorf("Expected 3, got %s", got.String())
	}
}

func TestFixedPoint_Comparisons(t *testing.T) {
	a := FromFloat64(1.1)
	b := FromFloat64(1.2)

	if !a.Lt(b) || !b.Gt(a) || !a.Lte(a) || !b.Gte(b) {
		t.Error("Comparison operators inconsistent")
	}
	if a.Eq(b) {
		t.Error("Expected inequality")
	}
}

func TestFixedPoint_Signs(t *testing.T) {
	if !FromInt(-3, 0).IsNegative() {
		t.Error("Expected negative")
	}
	if !FromInt(3, 0).IsPositive() {
		t.Error("Expected positive")
	}
	if !Zero.IsZero() {
		t.Error("Expected zero")
	}
	if got := FromInt(-3, 0).Abs(); !got.Eq(FromInt(3, 0)) {
		t.Errorf("Expected 3, got %s", got.String())
	}
	if got := FromInt(3, 0).Neg(); !got.Eq(FromInt(-3, 0)) {
		t.Errorf("Expected -3, got %s", got.String())
	}
}

func TestFixedPoint_FromString(t *testing.T) {
	p, err := FromString("1.2345")
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	if !p.Eq(FromFloat64(1.2345)) {
		t.Errorf("Expected 1.2345, got %s", p.String())
	}

	if _, err := FromString("not a number"); err == nil {
		t.Error("Expected error for malformed input")
	}
}

func TestFixedPoint_Clamp(t *testing.T) {
	lo := FromFloat64(0.01)
	hi := FromInt(100, 0)

	if got := Clamp(FromFloat64(0.001), lo, hi); !got.Eq(lo) {
		t.Errorf("Expected clamp to lower bound, got %s", got.String())
	}
	if got := Clamp(FromInt(500, 0), lo, hi); !got.Eq(hi) {
		t.Errorf("Expected clamp to upper bound, got %s", got.String())
	}
	if got := Clamp(One, lo, hi); !got.Eq(One) {
		t.Errorf("Expected value unchanged, got %s", got.String())
	}
}

func TestFixedPoint_FloorAndRescale(t *testing.T) {
	if got := FromFloat64(3.7).Floor(); !got.Eq(FromInt(3, 0)) {
		t.Errorf("Expected 3, got %s", got.String())
	}
	if got := FromFloat64(1.23456).Rescale(2).String(); got != "1.23" {
		t.Errorf("Expected 1.23, got %s", got)
	}
}

func TestFixedMath_Mean(t *testing.T) {
	points := []Point{FromInt(1, 0), FromInt(2, 0), FromInt(3, 0)}
	if got := Mean(points); !got.Eq(FromInt(2, 0)) {
		t.Errorf("Expected 2, got %s", got.String())
	}
	if got := Mean(nil); !got.IsZero() {
		t.Errorf("Expected zero mean for empty input, got %s", got.String())
	}
}

func TestFixedMath_StdDev(t *testing.T) {
	points := []Point{FromInt(2, 0), FromInt(4, 0), FromInt(4, 0), FromInt(4, 0), FromInt(5, 0), FromInt(5, 0), FromInt(7, 0), FromInt(9, 0)}
	mean := Mean(points)
	if !mean.Eq(FromInt(5, 0)) {
		t.Fatalf("Expected mean 5, got %s", mean.String())
	}
	if got := StdDev(points, mean); !got.Eq(FromInt(2, 0)) {
		t.Errorf("Expected stddev 2, got %s", got.String())
	}
	if got := StdDev([]Point{One}, One); !got.IsZero() {
		t.Errorf("Expected zero stddev for single point, got %s", got.String())
	}
}
