// Package tariff defines tariff records and the rules for adding,
// superseding, resolving, and pricing them.
package tariff

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/platform/id"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
)

// Tariff is a duty rate applied to goods moving from OriginCountry to
// DestCountry between EffectiveDate and ExpiryDate (inclusive).
type Tariff struct {
	ID            string
	OriginCountry string
	DestCountry   string
	EffectiveDate time.Time
	ExpiryDate    *time.Time
	// AdValoremRate is a decimal fraction: 0.12 means 12%.
	AdValoremRate float64
	// SpecificRate is a fixed amount per unit.
	SpecificRate *float64
	Enabled      bool
	MinQuantity  float64
	MaxQuantity  float64
	UserDefined  bool
	Products     []product.Product
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActiveOn reports whether the tariff window covers day.
func (t Tariff) ActiveOn(day time.Time) bool {
	day = Day(day)
	if Day(t.EffectiveDate).After(day) {
		return false
	}
	return t.ExpiryDate == nil || !Day(*t.ExpiryDate).Before(day)
}

// Expired reports whether the tariff expired before day.
func (t Tariff) Expired(day time.Time) bool {
	return t.ExpiryDate != nil && Day(*t.ExpiryDate).Before(Day(day))
}

// HasQuantityBand reports whether a min or max quantity is configured.
func (t Tariff) HasQuantityBand() bool {
	return t.MinQuantity > 0 || t.MaxQuantity > 0
}

// AppliesToQuantity reports whether quantity falls inside the band.
func (t Tariff) AppliesToQuantity(quantity float64) bool {
	if t.MinQuantity > 0 && quantity < t.MinQuantity {
		return false
	}
	if t.MaxQuantity > 0 && quantity > t.MaxQuantity {
		return false
	}
	return true
}

// HasProduct reports whether the tariff links the HTS code.
func (t Tariff) HasProduct(htsCode string) bool {
	for _, p := range t.Products {
		if p.HTSCode == htsCode {
			return true
		}
	}
	return false
}

// ProductMeta carries optional metadata for a product created alongside a
// tariff.
type ProductMeta struct {
	Name        string
	Description string
	Enabled     *bool
}

// AddInput describes a new tariff.
type AddInput struct {
	OriginCountry string
	DestCountry   string
	EffectiveDate time.Time
	ExpiryDate    *time.Time
	// Rate is the decimal ad valorem rate and wins over AdValoremPercent.
	Rate             *float64
	AdValoremPercent *float64
	SpecificRate     *float64
	Enabled          *bool
	HTSCode          string
	MinQuantity      float64
	MaxQuantity      float64
	UserDefined      bool
	Products         []ProductMeta
}

// ResolveRate picks the decimal ad valorem rate from the add input.
func (in AddInput) ResolveRate() float64 {
	switch {
	case in.Rate != nil:
		return *in.Rate
	case in.AdValoremPercent != nil:
		return *in.AdValoremPercent / 100
	default:
		return 0
	}
}

// New validates an add request and returns the tariff to insert together
// with the product to create when the HTS code is not yet known.
func New(in AddInput, createdBy string, now func() time.Time, idGenerator func() (string, error)) (Tariff, product.Product, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	fields := apperrors.FieldErrors{}
	origin := country.NormalizeCode(in.OriginCountry)
	dest := country.NormalizeCode(in.DestCountry)
	if origin == "" {
		fields.Add("originCountry", "origin country is required")
	}
	if dest == "" {
		fields.Add("destCountry", "destination country is required")
	}
	if in.EffectiveDate.IsZero() {
		fields.Add("effectiveDate", "effective date is required")
	}
	htsCode, err := product.NormalizeHTSCode(in.HTSCode)
	if err != nil {
		fields.Add("htsCode", err.Error())
	}
	if err := fields.Err(); err != nil {
		return Tariff{}, product.Product{}, err
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	createdAt := now().UTC()
	t := Tariff{
		OriginCountry: origin,
		DestCountry:   dest,
		EffectiveDate: Day(in.EffectiveDate),
		ExpiryDate:    dayPtr(in.ExpiryDate),
		AdValoremRate: in.ResolveRate(),
		SpecificRate:  in.SpecificRate,
		Enabled:       enabled,
		MinQuantity:   in.MinQuantity,
		MaxQuantity:   in.MaxQuantity,
		UserDefined:   in.UserDefined,
		CreatedBy:     strings.TrimSpace(createdBy),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := Validate(t); err != nil {
		return Tariff{}, product.Product{}, err
	}

	tariffID, err := idGenerator()
	if err != nil {
		return Tariff{}, product.Product{}, fmt.Errorf("generate tariff id: %w", err)
	}
	t.ID = tariffID

	meta := product.Product{HTSCode: htsCode, Name: htsCode, Enabled: true}
	if len(in.Products) > 0 {
		first := in.Products[0]
		if name := strings.TrimSpace(first.Name); name != "" {
			meta.Name = name
		}
		meta.Description = first.Description
		if first.Enabled != nil {
			meta.Enabled = *first.Enabled
		}
	}
	meta, err = product.Normalize(meta)
	if err != nil {
		return Tariff{}, product.Product{}, err
	}
	return t, meta, nil
}

// Validate checks the invariants every stored tariff must satisfy.
func Validate(t Tariff) error {
	fields := apperrors.FieldErrors{}
	if t.OriginCountry == "" {
		fields.Add("originCountry", "origin country is required")
	}
	if t.DestCountry == "" {
		fields.Add("destCountry", "destination country is required")
	}
	if t.ExpiryDate != nil && Day(t.EffectiveDate).After(Day(*t.ExpiryDate)) {
		fields.Add("expiryDate", "effective date cannot be after expiry date")
	}
	if t.AdValoremRate < 0 {
		fields.Add("adValoremRate", "ad valorem rate must not be negative")
	}
	if t.SpecificRate != nil && *t.SpecificRate < 0 {
		fields.Add("specificRate", "specific rate must not be negative")
	}
	if t.MinQuantity < 0 {
		fields.Add("minQuantity", "minimum quantity must not be negative")
	}
	if t.MaxQuantity < 0 {
		fields.Add("maxQuantity", "maximum quantity must not be negative")
	}
	if t.MaxQuantity > 0 && t.MaxQuantity < t.MinQuantity {
		fields.Add("maxQuantity", "maximum quantity must not be below minimum quantity")
	}
	return fields.Err()
}

// Supersede returns the expiry to set on an existing tariff that a new
// tariff starting at effective replaces. An existing expiry on or after the
// new effective date is an overlap.
func Supersede(existing Tariff, effective time.Time) (time.Time, error) {
	effective = Day(effective)
	if existing.ExpiryDate != nil && !Day(*existing.ExpiryDate).Before(effective) {
		next := AddDays(*existing.ExpiryDate, 1)
		return time.Time{}, apperrors.WithMetadata(apperrors.CodeTariffOverlap,
			"new effective date must be "+FormatDate(next)+" onwards",
			map[string]string{"tariff_id": existing.ID})
	}
	return AddDays(effective, -1), nil
}

// SoftDeleteExpiry is the expiry that makes a tariff never active.
func SoftDeleteExpiry(t Tariff) time.Time {
	return AddDays(t.EffectiveDate, -1)
}

// UpdateInput carries a partial tariff update; nil fields are unchanged.
type UpdateInput struct {
	OriginCountry *string
	DestCountry   *string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
	AdValoremRate *float64
	SpecificRate  *float64
	Enabled       *bool
	MinQuantity   *float64
	MaxQuantity   *float64
	UserDefined   *bool
}

// Apply merges in into t and re-validates the result. Date ordering is only
// checked when a date changes so soft-deleted tariffs stay editable.
func Apply(t Tariff, in UpdateInput, now func() time.Time) (Tariff, error) {
	if now == nil {
		now = time.Now
	}
	if in.OriginCountry != nil {
		t.OriginCountry = country.NormalizeCode(*in.OriginCountry)
	}
	if in.DestCountry != nil {
		t.DestCountry = country.NormalizeCode(*in.DestCountry)
	}
	datesChanged := false
	if in.EffectiveDate != nil {
		t.EffectiveDate = Day(*in.EffectiveDate)
		datesChanged = true
	}
	if in.ExpiryDate != nil {
		t.ExpiryDate = dayPtr(in.ExpiryDate)
		datesChanged = true
	}
	if in.AdValoremRate != nil {
		t.AdValoremRate = *in.AdValoremRate
	}
	if in.SpecificRate != nil {
		value := *in.SpecificRate
		t.SpecificRate = &value
	}
	if in.Enabled != nil {
		t.Enabled = *in.Enabled
	}
	if in.MinQuantity != nil {
		t.MinQuantity = *in.MinQuantity
	}
	if in.MaxQuantity != nil {
		t.MaxQuantity = *in.MaxQuantity
	}
	if in.UserDefined != nil {
		t.UserDefined = *in.UserDefined
	}

	check := t
	if !datesChanged {
		check.ExpiryDate = nil
	}
	if err := Validate(check); err != nil {
		return Tariff{}, err
	}
	t.UpdatedAt = now().UTC()
	return t, nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	day := Day(*t)
	return &day
}
