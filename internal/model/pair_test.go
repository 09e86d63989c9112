package model

import (
	"math"
	"testing"
	"time"
)

func TestCointegratedPair_Spreads(t *testing.T) {
	dates := []time.Time{day(0), day(1)}
	logA := []float64{math.Log(12), math.Log(15)}
	logB := []float64{math.Log(4), math.Log(5)}
	p := NewCointegratedPair("A", "B", 2, 0.5, 0.001, dates, logA, logB)

	dollar := p.DollarSpread()
	if math.Abs(dollar[0]-4) > 1e-9 || math.Abs(dollar[1]-5) > 1e-9 {
		t.Fatalf("dollar spread = %v, want [4 5]", dollar)
	}
	logSpread := p.LogSpread()
	for i := range logA {
		want := logA[i] - 2*logB[i]
		if math.Abs(logSpread[i]-want) > 1e-12 {
			t.Errorf("log spread[%d] = %v, want %v", i, logSpread[i], want)
		}
		if math.Abs(p.Residuals()[i]-(want-0.5)) > 1e-12 {
			t.Errorf("residual[%d] = %v, want %v", i, p.Residuals()[i], want-0.5)
		}
	}
}

func TestPairID_Stable(t *testing.T) {
	a := NewPairID("XOM", "CVX", 0.4567891)
	if a != NewPairID("XOM", "CVX", 0.4567891) {
		t.Fatal("same inputs must give the same id")
	}
	if a == NewPairID("CVX", "XOM", 0.4567891) {
		t.Fatal("ordering must change the id")
	}
	parsed, err := ParsePairID(a.String())
	if err != nil || parsed != a {
		t.Fatalf("parse = %v, %v", parsed, err)
	}
}
