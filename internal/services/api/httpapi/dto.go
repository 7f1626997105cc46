package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

type countryJSON struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func toCountryJSON(c country.Country) countryJSON {
	return countryJSON{Code: c.Code, Name: c.Name}
}

type productJSON struct {
	HTSCode     string `json:"htsCode"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func toProductJSON(p product.Product) productJSON {
	return productJSON{HTSCode: p.HTSCode, Name: p.Name, Description: p.Description, Enabled: p.Enabled}
}

type tariffJSON struct {
	ID            string        `json:"id"`
	OriginCountry string        `json:"originCountry"`
	DestCountry   string        `json:"destCountry"`
	EffectiveDate string        `json:"effectiveDate"`
	ExpiryDate    *string       `json:"expiryDate"`
	AdValoremRate float64       `json:"adValoremRate"`
	SpecificRate  *float64      `json:"specificRate"`
	Enabled       bool          `json:"enabled"`
	MinQuantity   float64       `json:"minQuantity"`
	MaxQuantity   float64       `json:"maxQuantity"`
	UserDefined   bool          `json:"userDefined"`
	Products      []productJSON `json:"products"`
	CreatedBy     string        `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func toTariffJSON(t tariff.Tariff) tariffJSON {
	out := tariffJSON{
		ID:            t.ID,
		OriginCountry: t.OriginCountry,
		DestCountry:   t.DestCountry,
		EffectiveDate: tariff.FormatDate(t.EffectiveDate),
		AdValoremRate: t.AdValoremRate,
		SpecificRate:  t.SpecificRate,
		Enabled:       t.Enabled,
		MinQuantity:   t.MinQuantity,
		MaxQuantity:   t.MaxQuantity,
		UserDefined:   t.UserDefined,
		Products:      make([]productJSON, 0, len(t.Products)),
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.ExpiryDate != nil {
		expiry := tariff.FormatDate(*t.ExpiryDate)
		out.ExpiryDate = &expiry
	}
	for _, p := range t.Products {
		out.Products = append(out.Products, toProductJSON(p))
	}
	return out
}

func toTariffsJSON(tariffs []tariff.Tariff) []tariffJSON {
	out := make([]tariffJSON, 0, len(tariffs))
	for _, t := range tariffs {
		out = append(out, toTariffJSON(t))
	}
	return out
}

type userJSON struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserJSON(u user.User) userJSON {
	return userJSON{Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type productMetaJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

type addTariffRequest struct {
	OriginCountry string   `json:"originCountry"`
	DestCountry   string   `json:"destCountry"`
	EffectiveDate string   `json:"effectiveDate"`
	ExpiryDate    *string  `json:"expiryDate"`
	Rate          *float64 `json:"rate"`
	// AdValoremRate is a percentage, used when Rate is absent.
	AdValoremRate *float64          `json:"adValoremRate"`
	SpecificRate  *float64          `json:"specificRate"`
	Enabled       *bool             `json:"enabled"`
	HTSCode       string            `json:"htsCode"`
	MinQuantity   float64           `json:"minQuantity"`
	MaxQuantity   float64           `json:"maxQuantity"`
	UserDefined   bool              `json:"userDefined"`
	Products      []productMetaJSON `json:"products"`
}

func (req addTariffRequest) input() (tariff.AddInput, error) {
	fields := apperrors.FieldErrors{}
	in := tariff.AddInput{
		OriginCountry:    req.OriginCountry,
		DestCountry:      req.DestCountry,
		Rate:             req.Rate,
		AdValoremPercent: req.AdValoremRate,
		SpecificRate:     req.SpecificRate,
		Enabled:          req.Enabled,
		HTSCode:          req.HTSCode,
		MinQuantity:      req.MinQuantity,
		MaxQuantity:      req.MaxQuantity,
		UserDefined:      req.UserDefined,
	}
	if strings.TrimSpace(req.EffectiveDate) != "" {
		effective, err := tariff.ParseDate(req.EffectiveDate)
		if err != nil {
			fields.Add("effectiveDate", "effective date must be YYYY-MM-DD")
		}
		in.EffectiveDate = effective
	}
	expiry, err := optionalDate(req.ExpiryDate)
	if err != nil {
		fields.Add("expiryDate", "expiry date must be YYYY-MM-DD")
	}
	in.ExpiryDate = expiry
	for _, p := range req.Products {
		in.Products = append(in.Products, tariff.ProductMeta{Name: p.Name, Description: p.Description, Enabled: p.Enabled})
	}
	if err := fields.Err(); err != nil {
		return tariff.AddInput{}, err
	}
	return in, nil
}

type updateTariffRequest struct {
	OriginCountry *string  `json:"originCountry"`
	DestCountry   *string  `json:"destCountry"`
	EffectiveDate *string  `json:"effectiveDate"`
	ExpiryDate    *string  `json:"expiryDate"`
	AdValoremRate *float64 `json:"adValoremRate"`
	SpecificRate  *float64 `json:"specificRate"`
	Enabled       *bool    `json:"enabled"`
	MinQuantity   *float64 `json:"minQuantity"`
	MaxQuantity   *float64 `json:"maxQuantity"`
	UserDefined   *bool    `json:"userDefined"`
}

func (req updateTariffRequest) input() (tariff.UpdateInput, error) {
	fields := apperrors.FieldErrors{}
	in := tariff.UpdateInput{
		OriginCountry: req.OriginCountry,
		DestCountry:   req.DestCountry,
		AdValoremRate: req.AdValoremRate,
		SpecificRate:  req.SpecificRate,
		Enabled:       req.Enabled,
		MinQuantity:   req.MinQuantity,
		MaxQuantity:   req.MaxQuantity,
		UserDefined:   req.UserDefined,
	}
	effective, err := optionalDate(req.EffectiveDate)
	if err != nil {
		fields.Add("effectiveDate", "effective date must be YYYY-MM-DD")
	}
	in.EffectiveDate = effective
	expiry, err := optionalDate(req.ExpiryDate)
	if err != nil {
		fields.Add("expiryDate", "expiry date must be YYYY-MM-DD")
	}
	in.ExpiryDate = expiry
	if err := fields.Err(); err != nil {
		return tariff.UpdateInput{}, err
	}
	return in, nil
}

type resolveRequest struct {
	Product       string `json:"product"`
	Date          string `json:"date"`
	OriginCountry string `json:"originCountry"`
	DestCountry   string `json:"destCountry"`
}

type calculateRequest struct {
	Product       string  `json:"product"`
	OriginCountry string  `json:"originCountry"`
	DestCountry   string  `json:"destCountry"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Date          string  `json:"date"`
}

type calculationJSON struct {
	TariffID            string  `json:"tariffId,omitempty"`
	AdValoremRate       float64 `json:"adValoremRate"`
	SpecificRate        float64 `json:"specificRate"`
	Duty                float64 `json:"duty"`
	TotalExportEarnings float64 `json:"totalExportEarnings"`
	TotalImportCost     float64 `json:"totalImportCost"`
}

func toCalculationJSON(c tariff.Calculation) calculationJSON {
	return calculationJSON{
		TariffID:            c.TariffID,
		AdValoremRate:       c.AdValoremRate,
		SpecificRate:        c.SpecificRate,
		Duty:                c.Duty,
		TotalExportEarnings: c.TotalExportEarnings,
		TotalImportCost:     c.TotalImportCost,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	// ExpiresIn is the token lifetime in milliseconds.
	ExpiresIn int64 `json:"expiresIn"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type roleChangeRequest struct {
	Email string `json:"email"`
}

type createProductRequest struct {
	HTSCode     string `json:"htsCode"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

type updateCountryRequest struct {
	Name string `json:"name"`
}

type tariffProductRequest struct {
	Name        string `json:"name"`
	HTSCode     string `json:"htsCode"`
	Description string `json:"description"`
}

type predictionJSON struct {
	Filename string `json:"filename"`
	Country  string `json:"country,omitempty"`
	Report   string `json:"report"`
}

func optionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	day, err := tariff.ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.Invalid(name, name+" must be true or false")
	}
	return value, nil
}
