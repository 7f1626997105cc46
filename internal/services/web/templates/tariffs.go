package templates

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffview"
)

// TariffsView is the tariff table page state.
type TariffsView struct {
	Table tariffview.Table
}

// TariffQueryString encodes q for links.
func TariffQueryString(q tariffview.Query) string {
	values := url.Values{}
	if q.Origin != "" {
		values.Set("origin", q.Origin)
	}
	values.Set("mode", string(tariffview.ParseMode(string(q.Mode))))
	if q.HideExpired {
		values.Set("hide_expired", "true")
	}
	if q.Page > 1 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	return values.Encode()
}

// Tariffs renders the filtered table.
func Tariffs(view TariffsView) templ.Component {
	return component(func(h *html) {
		table := view.Table
		q := table.Query
		h.raw(`<h1>Tariffs</h1>`)
		h.raw(`<form method="get" action="/tariffs"><label>Country<select name="origin"><option value="">Select a country</option>`)
		for _, o := range table.Origins {
			h.option(o.Code, o.Name, o.Code == q.Origin)
		}
		h.raw(`</select></label><label>Mode<select name="mode">`)
		h.option(string(tariffview.ModeExport), "Exports from country", q.Mode == tariffview.ModeExport)
		h.option(string(tariffview.ModeImport), "Imports into country", q.Mode == tariffview.ModeImport)
		h.raw(`</select></label><label><input type="checkbox" name="hide_expired" value="true"`)
		h.flag("checked", q.HideExpired)
		h.raw(`> Hide expired</label><button type="submit">Show</button></form>`)
		h.postButton("/tariffs/refresh", "Refresh data", map[string]string{"query": TariffQueryString(q)})

		if q.Origin == "" {
			h.raw(`<p>Select a country to see its tariffs.</p>`)
			return
		}
		exportQuery := TariffQueryString(tariffview.Query{Origin: q.Origin, Mode: q.Mode, HideExpired: q.HideExpired})
		h.raw(`<p><a`)
		h.attr("href", "/tariffs/export.csv?"+exportQuery)
		h.raw(`>Export CSV</a> <a`)
		h.attr("href", "/tariffs/export.xlsx?"+exportQuery)
		h.raw(`>Export Excel</a></p>`)

		h.raw(`<p class="stats">Matches: `)
		h.text(Count(table.Stats.Matches))
		h.raw(` | Avg ad valorem: `)
		h.text(Decimal(table.Stats.AvgAdValorem, 4))
		h.raw(` | Avg specific: `)
		h.text(Decimal(table.Stats.AvgSpecific, 2))
		h.raw(`</p>`)

		partner := "Destination"
		if q.Mode == tariffview.ModeImport {
			partner = "Origin"
		}
		h.raw(`<table><thead><tr><th>`)
		h.text(partner)
		h.raw(`</th><th>Effective</th><th>Expiry</th><th>Ad valorem</th><th>Specific</th><th>Products</th></tr></thead><tbody>`)
		for _, row := range table.Rows {
			h.raw(`<tr`)
			if row.Expired {
				h.attr("class", "expired")
			}
			h.raw(`><td>`)
			h.text(row.Partner)
			h.raw(`</td><td>`)
			h.text(row.EffectiveDate)
			h.raw(`</td><td>`)
			h.text(orDash(row.ExpiryDate))
			h.raw(`</td><td>`)
			h.text(Percent(row.AdValoremRate, 2))
			h.raw(`</td><td>`)
			if row.SpecificRate != nil {
				h.text(Money(*row.SpecificRate))
			} else {
				h.text("-")
			}
			h.raw(`</td><td>`)
			h.text(strings.Join(row.Products, ", "))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		h.raw(`<nav class="pager"><span>Showing `)
		h.text(itoa(table.First) + "-" + itoa(table.Last) + " of " + itoa(table.Stats.Matches))
		h.raw(`</span> `)
		if q.Page > 1 {
			prev := q
			prev.Page--
			h.raw(`<a`)
			h.attr("href", "/tariffs?"+TariffQueryString(prev))
			h.raw(`>Previous</a> `)
		}
		h.text("Page " + itoa(q.Page) + " of " + itoa(table.TotalPages))
		if q.Page < table.TotalPages {
			next := q
			next.Page++
			h.raw(` <a`)
			h.attr("href", "/tariffs?"+TariffQueryString(next))
			h.raw(`>Next</a>`)
		}
		h.raw(`</nav>`)
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// HeatmapView is the heatmap page state.
type HeatmapView struct {
	Origins []tariffview.Option
	Origin  string
	Cells   []tariffview.HeatCell
}

// Heatmap renders average rates per partner.
func Heatmap(view HeatmapView) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Tariff heatmap</h1><form method="get" action="/heatmap"><label>Origin<select name="origin">`)
		h.raw(`<option value="">Select a country</option>`)
		for _, o := range view.Origins {
			h.option(o.Code, o.Name, o.Code == view.Origin)
		}
		h.raw(`</select></label><button type="submit">Show</button></form>`)
		if view.Origin == "" {
			return
		}
		if len(view.Cells) == 0 {
			h.raw(`<p>No active tariffs from this country.</p>`)
			return
		}
		h.raw(`<table><thead><tr><th>Partner</th><th>Tariffs</th><th>Average ad valorem</th></tr></thead><tbody>`)
		for _, cell := range view.Cells {
			h.raw(`<tr><td>`)
			h.text(cell.Name)
			h.raw(`</td><td>`)
			h.text(Count(cell.Tariffs))
			h.raw(`</td><td><span`)
			h.attr("class", "heat heat-"+itoa(cell.Bucket))
			h.raw(`>`)
			h.text(Percent(cell.AvgAdValorem, 2))
			h.raw(`</span></td></tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}
