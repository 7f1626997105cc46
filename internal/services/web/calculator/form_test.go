package calculator

import (
	"errors"
	"testing"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		err  error
	}{
		{raw: " 1,250.50 ", want: 1250.5},
		{raw: "$1,000", want: 1000},
		{raw: "€ 12", want: 12},
		{raw: "0", want: 0},
		{raw: "", err: errAmountRequired},
		{raw: " $ ", err: errAmountRequired},
		{raw: "NaN", err: errAmountInvalid},
		{raw: "inf", err: errAmountInvalid},
		{raw: "12abc", err: errAmountInvalid},
		{raw: "-3", err: errAmountNegative},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.raw)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ParseAmount(%q) error = %v, want %v", tc.raw, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestFormRequest(t *testing.T) {
	req, err := Form{Product: " Laptop ", Origin: "SG", Dest: "US", Quantity: "10", UnitPrice: "$1,000"}.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Product != "Laptop" || req.Quantity != 10 || req.UnitPrice != 1000 {
		t.Fatalf("request = %+v", req)
	}

	_, err = Form{Quantity: "-1", UnitPrice: "abc"}.Request()
	domainErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"product", "origin", "dest", "quantity", "unit_price"} {
		if domainErr.Fields[field] == "" {
			t.Fatalf("missing field error for %s: %v", field, domainErr.Fields)
		}
	}
	if domainErr.Fields["quantity"] != "quantity cannot be negative" {
		t.Fatalf("quantity error = %q", domainErr.Fields["quantity"])
	}
}
