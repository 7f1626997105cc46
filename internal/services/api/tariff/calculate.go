package tariff

import (
	"math"
	"strings"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
)

// ResolveQuery selects the tariff for a product between two countries on a
// date. Product matches an enabled product's name or HTS code.
type ResolveQuery struct {
	Product       string
	Date          time.Time
	OriginCountry string
	DestCountry   string
}

// Normalize trims and validates the query.
func (q ResolveQuery) Normalize() (ResolveQuery, error) {
	q.Product = strings.TrimSpace(q.Product)
	q.OriginCountry = country.NormalizeCode(q.OriginCountry)
	q.DestCountry = country.NormalizeCode(q.DestCountry)
	fields := apperrors.FieldErrors{}
	if q.Product == "" {
		fields.Add("product", "product name is required")
	}
	if q.OriginCountry == "" {
		fields.Add("originCountry", "country of origin is required")
	}
	if q.DestCountry == "" {
		fields.Add("destCountry", "destination country is required")
	}
	if q.Date.IsZero() {
		fields.Add("date", "a date is required")
	}
	if err := fields.Err(); err != nil {
		return ResolveQuery{}, err
	}
	q.Date = Day(q.Date)
	return q, nil
}

// PickActive returns the candidate active on day with the latest effective
// date, or false when none applies.
func PickActive(candidates []Tariff, day time.Time) (Tariff, bool) {
	var best Tariff
	found := false
	for _, candidate := range candidates {
		if !candidate.Enabled || !candidate.ActiveOn(day) {
			continue
		}
		if !found || candidate.EffectiveDate.After(best.EffectiveDate) {
			best = candidate
			found = true
		}
	}
	return best, found
}

// ErrNoTariff is returned when no tariff applies.
var ErrNoTariff = apperrors.New(apperrors.CodeNoTariffFound, "no tariff found")

// CalculationInput describes a duty calculation.
type CalculationInput struct {
	Product       string
	OriginCountry string
	DestCountry   string
	Quantity      float64
	UnitPrice     float64
	Date          time.Time
}

// Normalize validates the input and defaults the date to today.
func (in CalculationInput) Normalize(now func() time.Time) (CalculationInput, error) {
	if now == nil {
		now = time.Now
	}
	in.Product = strings.TrimSpace(in.Product)
	in.OriginCountry = country.NormalizeCode(in.OriginCountry)
	in.DestCountry = country.NormalizeCode(in.DestCountry)
	fields := apperrors.FieldErrors{}
	if in.Product == "" {
		fields.Add("product", "product is required")
	}
	if in.OriginCountry == "" {
		fields.Add("originCountry", "exporting country is required")
	}
	if in.DestCountry == "" {
		fields.Add("destCountry", "importing country is required")
	}
	if math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity <= 0 {
		fields.Add("quantity", "quantity must be greater than zero")
	}
	if math.IsNaN(in.UnitPrice) || math.IsInf(in.UnitPrice, 0) || in.UnitPrice < 0 {
		fields.Add("unitPrice", "unit price must not be negative")
	}
	if err := fields.Err(); err != nil {
		return CalculationInput{}, err
	}
	if in.Date.IsZero() {
		in.Date = now()
	}
	in.Date = Day(in.Date)
	return in, nil
}

// SameCountry reports whether the trade stays inside one country.
func (in CalculationInput) SameCountry() bool {
	return in.OriginCountry == in.DestCountry
}

// ResolveQuery converts the calculation into a tariff lookup.
func (in CalculationInput) ResolveQuery() ResolveQuery {
	return ResolveQuery{
		Product:       in.Product,
		Date:          in.Date,
		OriginCountry: in.OriginCountry,
		DestCountry:   in.DestCountry,
	}
}

// Calculation is the priced outcome of a duty calculation.
type Calculation struct {
	TariffID            string
	AdValoremRate       float64
	SpecificRate        float64
	Duty                float64
	TotalExportEarnings float64
	TotalImportCost     float64
}

// Calculate prices in against t. A nil tariff means a zero rate, used for
// domestic trade.
func Calculate(in CalculationInput, t *Tariff) (Calculation, error) {
	earnings := in.Quantity * in.UnitPrice
	out := Calculation{TotalExportEarnings: earnings, TotalImportCost: earnings}
	if t == nil {
		return out, nil
	}
	if t.HasQuantityBand() && !t.AppliesToQuantity(in.Quantity) {
		return Calculation{}, apperrors.New(apperrors.CodeNoTariffFound, "no tariff applies to this quantity")
	}
	out.TariffID = t.ID
	out.AdValoremRate = t.AdValoremRate
	if t.SpecificRate != nil {
		out.SpecificRate = *t.SpecificRate
	}
	out.Duty = earnings*out.AdValoremRate + in.Quantity*out.SpecificRate
	out.TotalImportCost = earnings + out.Duty
	return out, nil
}
