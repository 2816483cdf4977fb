package parse

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"84.30", "84.3", true},
		{"1,500.00", "1500", true},
		{"$1,234.56", "1234.56", true},
		{"-120.50", "-120.5", true},
		{"+45", "45", true},
		{"35,000.00 (PHP)", "35000", true},
		{"₱500", "500", true},
		{"(250.00)", "250", true},
		{"", "", false},
		{"-", "", false},
		{"abc", "", false},
		{"12.34.56", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParseAmount_KeepsSign(t *testing.T) {
	got, ok := ParseAmount("-1,000.25")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if !got.IsNegative() {
		t.Errorf("expected negative amount, got %s", got)
	}
}
