package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"١٢", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"-12.50", -1250, true},
		{"-12,50", -1250, true},
		{"+3", 300, true},
		{"0", 0, true},
		{"7.125", 713, true},
		{"-", 0, false},
		{"--1", 0, false},
		{"x1", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestToCentsRounding(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{1.005, 101},
		{0.015, 2},
		{12.344, 1234},
		{-2.5, -250},
		{0, 0},
		{100, 10000},
	}
	for _, tc := range cases {
		if got := ToCents(tc.in); got != tc.out {
			t.Fatalf("ToCents(%v) = %d, want %d", tc.in, got, tc.out)
		}
	}
	if got := FromCents(1167); got != 11.67 {
		t.Fatalf("FromCents(1167) = %v", got)
	}
	if got := RoundMoney(2.675); got != 2.68 {
		t.Fatalf("RoundMoney(2.675) = %v", got)
	}
}

func TestNonFiniteFloats(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := ToCents(x); got != 0 {
			t.Errorf("ToCents(%v) = %d, want 0", x, got)
		}
		if _, err := MoneyFromFloat(x); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("MoneyFromFloat(%v) err = %v", x, err)
		}
	}
	if got := RoundMoney(math.Inf(1)); !math.IsInf(got, 1) {
		t.Errorf("RoundMoney(+Inf) = %v", got)
	}
	if got := RoundMoney(math.NaN()); !math.IsNaN(got) {
		t.Errorf("RoundMoney(NaN) = %v", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Cents(-1230)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":-12.30}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "3,20"}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.A.Cents != 1250 || in.B.Cents != 320 {
		t.Fatalf("unexpected decode %+v", in)
	}
	if err := json.Unmarshal([]byte(`{"a": "ten"}`), &in); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMoneyHelpers(t *testing.T) {
	if MinMoney(Cents(5), Cents(3), Cents(9)).Cents != 3 {
		t.Fatal("MinMoney")
	}
	if MaxMoney(Cents(-5), Cents(0)).Cents != 0 {
		t.Fatal("MaxMoney")
	}
	if Cents(-42).Abs().Cents != 42 {
		t.Fatal("Abs")
	}
	if Cents(5).String() != "0.05" {
		t.Fatalf("String = %s", Cents(5).String())
	}
}
