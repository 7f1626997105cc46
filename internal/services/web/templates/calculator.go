package templates

import (
	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/calculator"
)

// CalculatorView is the calculator page state.
type CalculatorView struct {
	Products  []apiclient.Product
	Countries []apiclient.Country
	Form      calculator.Form
	Fields    map[string]string
	Error     string
	Result    *apiclient.Calculation
}

// Calculator renders the duty calculator.
func Calculator(view CalculatorView) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Tariff calculator</h1>`)
		h.alert(view.Error)
		h.raw(`<form method="post" action="/calculator">`)

		h.raw(`<label>Product<select name="product" required><option value="">Select a product</option>`)
		for _, p := range view.Products {
			h.option(p.Name, p.Name+" ("+p.HTSCode+")", p.Name == view.Form.Product)
		}
		h.raw(`</select></label>`)
		h.fieldError(view.Fields, "product")

		countrySelect(h, "origin", "Export country", view.Countries, view.Form.Origin)
		h.fieldError(view.Fields, "origin")
		countrySelect(h, "dest", "Import country", view.Countries, view.Form.Dest)
		h.fieldError(view.Fields, "dest")

		h.input("text", "quantity", view.Form.Quantity, "Quantity", true)
		h.fieldError(view.Fields, "quantity")
		h.input("text", "unit_price", view.Form.UnitPrice, "Unit price", true)
		h.fieldError(view.Fields, "unit_price")
		h.raw(`<button type="submit">Calculate</button></form>`)

		if r := view.Result; r != nil {
			h.raw(`<section class="result"><h2>Result</h2><dl>`)
			h.raw(`<dt>Tariff rate</dt><dd>`)
			h.text(Percent(r.AdValoremRate, 2))
			if r.SpecificRate != 0 {
				h.text(" + " + Money(r.SpecificRate) + " per unit")
			}
			h.raw(`</dd><dt>Duty</dt><dd>`)
			h.text(Money(r.Duty))
			h.raw(`</dd><dt>Total import cost</dt><dd>`)
			h.text(Money(r.TotalImportCost))
			h.raw(`</dd><dt>Total export earnings</dt><dd>`)
			h.text(Money(r.TotalExportEarnings))
			h.raw(`</dd></dl></section>`)
		}
	})
}

func countrySelect(h *html, name, label string, countries []apiclient.Country, selected string) {
	h.raw(`<label>`)
	h.text(label)
	h.raw(`<select`)
	h.attr("name", name)
	h.raw(` required><option value="">Select a country</option>`)
	for _, c := range countries {
		h.option(c.Code, c.Name, c.Code == selected)
	}
	h.raw(`</select></label>`)
}
