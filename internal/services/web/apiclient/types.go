package apiclient

import "time"

// Country is a catalog country.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Product is a catalog product.
type Product struct {
	HTSCode     string `json:"htsCode"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Tariff is a tariff as returned by the API.
type Tariff struct {
	ID            string    `json:"id"`
	OriginCountry string    `json:"originCountry"`
	DestCountry   string    `json:"destCountry"`
	EffectiveDate string    `json:"effectiveDate"`
	ExpiryDate    *string   `json:"expiryDate"`
	AdValoremRate float64   `json:"adValoremRate"`
	SpecificRate  *float64  `json:"specificRate"`
	Enabled       bool      `json:"enabled"`
	MinQuantity   float64   `json:"minQuantity"`
	MaxQuantity   float64   `json:"maxQuantity"`
	UserDefined   bool      `json:"userDefined"`
	Products      []Product `json:"products"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HTSCodes lists the codes of the linked products.
func (t Tariff) HTSCodes() []string {
	codes := make([]string, 0, len(t.Products))
	for _, p := range t.Products {
		codes = append(codes, p.HTSCode)
	}
	return codes
}

// User is an account without credentials.
type User struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds admin or super admin rights.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Role names as reported by the API.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Session is a successful login.
type Session struct {
	Token string `json:"token"`
	// ExpiresIn is the token lifetime in milliseconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// TTL returns the token lifetime.
func (s Session) TTL() time.Duration {
	return time.Duration(s.ExpiresIn) * time.Millisecond
}

// NewTariff is the payload for creating a tariff. AdValoremRate is a
// percentage.
type NewTariff struct {
	OriginCountry string   `json:"originCountry"`
	DestCountry   string   `json:"destCountry"`
	EffectiveDate string   `json:"effectiveDate"`
	ExpiryDate    *string  `json:"expiryDate,omitempty"`
	AdValoremRate *float64 `json:"adValoremRate,omitempty"`
	SpecificRate  *float64 `json:"specificRate,omitempty"`
	HTSCode       string   `json:"htsCode"`
	MinQuantity   float64  `json:"minQuantity"`
	MaxQuantity   float64  `json:"maxQuantity"`
	UserDefined   bool     `json:"userDefined"`
}

// TariffChanges is a partial tariff update. AdValoremRate is a decimal.
type TariffChanges struct {
	OriginCountry *string  `json:"originCountry,omitempty"`
	DestCountry   *string  `json:"destCountry,omitempty"`
	EffectiveDate *string  `json:"effectiveDate,omitempty"`
	ExpiryDate    *string  `json:"expiryDate,omitempty"`
	AdValoremRate *float64 `json:"adValoremRate,omitempty"`
	SpecificRate  *float64 `json:"specificRate,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
}

// NewProduct creates a catalog product. A nil Enabled leaves the API
// default, which is enabled.
type NewProduct struct {
	HTSCode     string `json:"htsCode"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// ProductChanges is a partial product update.
type ProductChanges struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// ProductLink names a product to attach to a tariff.
type ProductLink struct {
	Name        string `json:"name,omitempty"`
	HTSCode     string `json:"htsCode,omitempty"`
	Description string `json:"description,omitempty"`
}

// CalculationRequest asks for the duty on a shipment.
type CalculationRequest struct {
	Product       string  `json:"product"`
	OriginCountry string  `json:"originCountry"`
	DestCountry   string  `json:"destCountry"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Date          string  `json:"date,omitempty"`
}

// Calculation is the duty breakdown for a shipment.
type Calculation struct {
	TariffID            string  `json:"tariffId,omitempty"`
	AdValoremRate       float64 `json:"adValoremRate"`
	SpecificRate        float64 `json:"specificRate"`
	Duty                float64 `json:"duty"`
	TotalExportEarnings float64 `json:"totalExportEarnings"`
	TotalImportCost     float64 `json:"totalImportCost"`
}

// Prediction is a generated impact report.
type Prediction struct {
	Filename string `json:"filename"`
	Country  string `json:"country"`
	Report   string `json:"report"`
}
