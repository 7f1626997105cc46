// Package tariffview shapes API tariffs into the table, export and heatmap
// views of the web frontend.
package tariffview

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// PageSize is the number of rows per table page.
const PageSize = 20

const dateLayout = "2006-01-02"

// Mode selects which side of the lane the chosen country is on.
type Mode string

const (
	// ModeExport lists tariffs where the chosen country is the origin.
	ModeExport Mode = "export"
	// ModeImport lists tariffs where the chosen country is the destination.
	ModeImport Mode = "import"
)

// ParseMode defaults unknown values to export.
func ParseMode(raw string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(raw))) == ModeImport {
		return ModeImport
	}
	return ModeExport
}

// Query is the table state carried in the URL.
type Query struct {
	Origin      string
	Mode        Mode
	HideExpired bool
	Page        int
}

// Names maps country codes to display names.
type Names map[string]string

// NamesFrom indexes a country list.
func NamesFrom(countries []apiclient.Country) Names {
	names := make(Names, len(countries))
	for _, c := range countries {
		names[c.Code] = c.Name
	}
	return names
}

// Name returns the display name for code, or the code itself.
func (n Names) Name(code string) string {
	if name := strings.TrimSpace(n[code]); name != "" {
		return name
	}
	return code
}

// Option is a selectable country.
type Option struct {
	Code string
	Name string
}

// Row is one displayed tariff.
type Row struct {
	ID            string
	FromCode      string
	From          string
	ToCode        string
	To            string
	Partner       string
	EffectiveDate string
	ExpiryDate    string
	AdValoremRate float64
	SpecificRate  *float64
	Products      []string
	Expired       bool

	expiry    time.Time
	hasExpiry bool
}

// Stats summarizes the matched rows.
type Stats struct {
	Matches      int
	AvgAdValorem float64
	AvgSpecific  float64
}

// Table is one rendered page of matching tariffs.
type Table struct {
	Query      Query
	Origins    []Option
	Rows       []Row
	Stats      Stats
	TotalPages int
	// First and Last are the 1-based positions of the page rows.
	First int
	Last  int
}

// Origins lists the origin countries present in tariffs, sorted by name.
func Origins(tariffs []apiclient.Tariff, names Names) []Option {
	seen := make(map[string]bool)
	var out []Option
	for _, t := range tariffs {
		if t.OriginCountry == "" || seen[t.OriginCountry] {
			continue
		}
		seen[t.OriginCountry] = true
		out = append(out, Option{Code: t.OriginCountry, Name: names.Name(t.OriginCountry)})
	}
	slices.SortFunc(out, func(a, b Option) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.Code, b.Code))
	})
	return out
}

// Rows filters tariffs for q and returns them in display order.
func Rows(tariffs []apiclient.Tariff, names Names, q Query, today time.Time) []Row {
	today = truncateDay(today)
	var rows []Row
	for _, t := range tariffs {
		if q.Mode == ModeImport {
			if t.DestCountry != q.Origin {
				continue
			}
		} else if t.OriginCountry != q.Origin {
			continue
		}
		row := toRow(t, names, q.Mode, today)
		if q.HideExpired && row.Expired {
			continue
		}
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, compareRows)
	return rows
}

// Build renders the requested page of the table.
func Build(tariffs []apiclient.Tariff, names Names, q Query, today time.Time) Table {
	q.Mode = ParseMode(string(q.Mode))
	rows := Rows(tariffs, names, q, today)
	table := Table{
		Origins:    Origins(tariffs, names),
		Stats:      Summarize(rows),
		TotalPages: TotalPages(len(rows)),
	}
	q.Page = min(max(q.Page, 1), table.TotalPages)
	table.Query = q

	start := (q.Page - 1) * PageSize
	end := min(start+PageSize, len(rows))
	if start < end {
		table.Rows = rows[start:end]
		table.First = start + 1
		table.Last = end
	}
	return table
}

// TotalPages is never less than one.
func TotalPages(n int) int {
	return max(1, (n+PageSize-1)/PageSize)
}

// Summarize averages rates over rows. Missing specific rates count as zero.
func Summarize(rows []Row) Stats {
	stats := Stats{Matches: len(rows)}
	if len(rows) == 0 {
		return stats
	}
	var adValorem, specific float64
	for _, row := range rows {
		adValorem += row.AdValoremRate
		if row.SpecificRate != nil {
			specific += *row.SpecificRate
		}
	}
	n := float64(len(rows))
	stats.AvgAdValorem = round(adValorem/n, 4)
	stats.AvgSpecific = round(specific/n, 2)
	return stats
}

func toRow(t apiclient.Tariff, names Names, mode Mode, today time.Time) Row {
	row := Row{
		ID:            t.ID,
		FromCode:      t.OriginCountry,
		From:          names.Name(t.OriginCountry),
		ToCode:        t.DestCountry,
		To:            names.Name(t.DestCountry),
		EffectiveDate: t.EffectiveDate,
		AdValoremRate: t.AdValoremRate,
		SpecificRate:  t.SpecificRate,
		Products:      t.HTSCodes(),
	}
	row.Partner = row.To
	if mode == ModeImport {
		row.Partner = row.From
	}
	if t.ExpiryDate != nil {
		row.ExpiryDate = *t.ExpiryDate
		if expiry, err := time.Parse(dateLayout, *t.ExpiryDate); err == nil {
			row.expiry = expiry
			row.hasExpiry = true
			row.Expired = expiry.Before(today)
		}
	}
	return row
}

// compareRows orders by partner name, active before expired, then open-ended
// before the most recent expiry.
func compareRows(a, b Row) int {
	if c := strings.Compare(strings.ToLower(a.Partner), strings.ToLower(b.Partner)); c != 0 {
		return c
	}
	if a.Expired != b.Expired {
		if a.Expired {
			return 1
		}
		return -1
	}
	switch {
	case !a.hasExpiry && !b.hasExpiry:
		return 0
	case !a.hasExpiry:
		return -1
	case !b.hasExpiry:
		return 1
	}
	return b.expiry.Compare(a.expiry)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
