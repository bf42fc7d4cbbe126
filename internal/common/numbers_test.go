package common

import "testing"

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"-100.5", -100.5},
		{"-100,5", -100.5},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567", 1234567},
		{" 42,0 ", 42},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDecimal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDecimal_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1,2x"} {
		if _, err := ParseDecimal(in); err == nil {
			t.Errorf("ParseDecimal(%q) expected error", in)
		}
	}
}

func TestParseGermanNumber(t *testing.T) {
	got, err := ParseGermanNumber("1.234,56")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1234.56 {
		t.Errorf("got %v, want 1234.56", got)
	}
}

func TestParseThousands(t *testing.T) {
	got, err := ParseThousands(" 1,250.10 ")
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "1250.1" {
		t.Errorf("got %v, want 1250.1", got)
	}
	if _, err := ParseThousands("12O"); err == nil {
		t.Error("ParseThousands accepted a letter")
	}
}
