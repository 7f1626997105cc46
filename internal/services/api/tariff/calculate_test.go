package tariff

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
)

func TestPickActiveChoosesLatestEffective(t *testing.T) {
	older := Tariff{ID: "older", Enabled: true, EffectiveDate: mustDate(t, "2020-01-01")}
	newer := Tariff{ID: "newer", Enabled: true, EffectiveDate: mustDate(t, "2024-01-01")}
	future := Tariff{ID: "future", Enabled: true, EffectiveDate: mustDate(t, "2030-01-01")}
	disabled := Tariff{ID: "disabled", Enabled: false, EffectiveDate: mustDate(t, "2024-06-01")}

	got, ok := PickActive([]Tariff{older, disabled, future, newer}, mustDate(t, "2025-01-01"))
	if !ok || got.ID != "newer" {
		t.Fatalf("PickActive = %q %v, want newer", got.ID, ok)
	}
	if _, ok := PickActive([]Tariff{future}, mustDate(t, "2025-01-01")); ok {
		t.Fatal("expected no active tariff")
	}
}

func TestCalculationInputNormalize(t *testing.T) {
	in, err := CalculationInput{
		Product:       " Parts ",
		OriginCountry: "sg",
		DestCountry:   "us",
		Quantity:      10,
		UnitPrice:     2.5,
	}.Normalize(fixedNow)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if in.Product != "Parts" || in.OriginCountry != "SG" || in.DestCountry != "US" {
		t.Fatalf("normalized = %+v", in)
	}
	if FormatDate(in.Date) != "2025-03-01" {
		t.Fatalf("date default = %s", FormatDate(in.Date))
	}
}

func TestCalculationInputRejectsBadNumbers(t *testing.T) {
	tests := []CalculationInput{
		{Product: "p", OriginCountry: "SG", DestCountry: "US", Quantity: 0, UnitPrice: 1},
		{Product: "p", OriginCountry: "SG", DestCountry: "US", Quantity: -2, UnitPrice: 1},
		{Product: "p", OriginCountry: "SG", DestCountry: "US", Quantity: math.NaN(), UnitPrice: 1},
		{Product: "p", OriginCountry: "SG", DestCountry: "US", Quantity: 1, UnitPrice: -1},
		{Product: "", OriginCountry: "SG", DestCountry: "US", Quantity: 1, UnitPrice: 1},
	}
	for i, in := range tests {
		if _, err := in.Normalize(fixedNow); apperrors.CodeOf(err) != apperrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCalculate(t *testing.T) {
	specific := 1.5
	tr := Tariff{ID: "t1", AdValoremRate: 0.1, SpecificRate: &specific, Products: []product.Product{{HTSCode: "847330"}}}
	in := CalculationInput{Quantity: 100, UnitPrice: 20}

	got, err := Calculate(in, &tr)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	want := Calculation{
		TariffID:            "t1",
		AdValoremRate:       0.1,
		SpecificRate:        1.5,
		Duty:                100*20*0.1 + 100*1.5,
		TotalExportEarnings: 2000,
		TotalImportCost:     2000 + 100*20*0.1 + 100*1.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calculation mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateDomesticTradeHasNoDuty(t *testing.T) {
	got, err := Calculate(CalculationInput{Quantity: 3, UnitPrice: 10}, nil)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.Duty != 0 || got.TotalImportCost != 30 || got.TotalExportEarnings != 30 {
		t.Fatalf("calculation = %+v", got)
	}
}

func TestCalculateQuantityBand(t *testing.T) {
	tr := Tariff{ID: "t1", AdValoremRate: 0.1, MinQuantity: 10, MaxQuantity: 100}
	for _, qty := range []float64{5, 101} {
		if _, err := Calculate(CalculationInput{Quantity: qty, UnitPrice: 1}, &tr); apperrors.CodeOf(err) != apperrors.CodeNoTariffFound {
			t.Fatalf("quantity %v: expected no tariff, got %v", qty, err)
		}
	}
	for _, qty := range []float64{10, 50, 100} {
		if _, err := Calculate(CalculationInput{Quantity: qty, UnitPrice: 1}, &tr); err != nil {
			t.Fatalf("quantity %v: %v", qty, err)
		}
	}
	minOnly := Tariff{MinQuantity: 10}
	if !minOnly.AppliesToQuantity(1e9) {
		t.Fatal("expected open max to accept large quantities")
	}
}

func TestSameCountry(t *testing.T) {
	if !(CalculationInput{OriginCountry: "SG", DestCountry: "SG"}).SameCountry() {
		t.Fatal("expected same country")
	}
}
