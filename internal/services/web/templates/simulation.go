package templates

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// SimulationView is the document upload page state.
type SimulationView struct {
	Countries  []apiclient.Country
	Country    string
	Error      string
	Prediction *apiclient.Prediction
}

// Simulation renders the upload form and any generated report.
func Simulation(view SimulationView) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Policy simulation</h1><p>Upload a tariff policy PDF to get an impact report.</p>`)
		h.alert(view.Error)
		h.raw(`<form method="post" action="/simulation" enctype="multipart/form-data">`)
		h.raw(`<label>Document<input type="file" name="file" accept="application/pdf" required></label>`)
		h.raw(`<label>Country<select name="country"><option value="">Any country</option>`)
		for _, c := range view.Countries {
			h.option(c.Code, c.Name, c.Code == view.Country)
		}
		h.raw(`</select></label><button type="submit">Analyze</button></form>`)
		if p := view.Prediction; p != nil {
			h.raw(`<section class="report"><h2>Report for `)
			h.text(p.Filename)
			h.raw(`</h2>`)
			for _, para := range strings.Split(strings.TrimSpace(p.Report), "\n\n") {
				if strings.TrimSpace(para) == "" {
					continue
				}
				h.raw(`<p>`)
				h.text(para)
				h.raw(`</p>`)
			}
			h.raw(`</section>`)
		}
	})
}
