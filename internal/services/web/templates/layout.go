package templates

import (
	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
)

// Page is a full HTML document.
type Page struct {
	Title  string
	Viewer *apiclient.User
	Notice *flash.Notice
	Body   templ.Component
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#0f172a;color:#e2e8f0}
header{display:flex;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#1e293b}
header a{color:#93c5fd;text-decoration:none}
header .spacer{flex:1}
main{max-width:72rem;margin:0 auto;padding:1.5rem}
table{border-collapse:collapse;width:100%}
th,td{padding:.4rem .6rem;border-top:1px solid #334155;text-align:left}
tr.expired{background:rgba(255,0,0,.06)}
.notice{padding:.6rem 1rem;margin-bottom:1rem;border-radius:.25rem}
.notice-success{background:#14532d}.notice-info{background:#1e3a8a}
.notice-warning{background:#713f12}.notice-error{background:#7f1d1d}
.field-error{color:#fca5a5;margin:.2rem 0}
form.inline{display:inline}
label{display:block;margin:.5rem 0}
.heat{display:inline-block;min-width:6rem;padding:.3rem;text-align:center}
.heat-0{background:#1e293b}.heat-1{background:#fde68a;color:#000}.heat-2{background:#fbbf24;color:#000}
.heat-3{background:#f97316}.heat-4{background:#dc2626}
`

// Layout wraps a page body with the shared shell.
func Layout(page Page) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(pageTitle(page.Title))
		h.raw(`</title><style>`, styles, `</style></head><body>`)
		nav(h, page.Viewer)
		h.raw(`<main>`)
		if page.Notice != nil {
			h.raw(`<div`)
			h.attr("class", "notice notice-"+string(page.Notice.Kind))
			h.raw(` role="status">`)
			h.text(page.Notice.Message)
			h.raw(`</div>`)
		}
		h.render(page.Body)
		h.raw(`</main></body></html>`)
	})
}

func pageTitle(title string) string {
	if title == "" {
		return "TariffDesk"
	}
	return title + " | TariffDesk"
}

func nav(h *html, viewer *apiclient.User) {
	h.raw(`<header><a href="/"><strong>TariffDesk</strong></a>`)
	if viewer == nil {
		h.raw(`<span class="spacer"></span><a href="/login">Log in</a><a href="/signup">Sign up</a></header>`)
		return
	}
	h.raw(`<a href="/calculator">Calculator</a><a href="/tariffs">Tariffs</a><a href="/heatmap">Heatmap</a><a href="/simulation">Simulation</a>`)
	if viewer.IsAdmin() {
		h.raw(`<a href="/admin/tariffs">Manage tariffs</a><a href="/admin/users">Users</a>`)
	}
	h.raw(`<span class="spacer"></span><a href="/profile">`)
	h.text(viewer.Email)
	h.raw(`</a>`)
	h.postButton("/logout", "Log out", nil)
	h.raw(`</header>`)
}

// Home is the landing page.
func Home(viewer *apiclient.User) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Tariff lookup and duty estimates</h1>`)
		if viewer == nil {
			h.raw(`<p>Log in to browse tariffs, estimate import duties and simulate policy changes.</p>`)
			h.raw(`<p><a href="/login">Log in</a> or <a href="/signup">create an account</a>.</p>`)
			return
		}
		h.raw(`<ul>`)
		h.raw(`<li><a href="/calculator">Calculate the duty on a shipment</a></li>`)
		h.raw(`<li><a href="/tariffs">Browse tariffs by country</a></li>`)
		h.raw(`<li><a href="/heatmap">Compare average rates across partners</a></li>`)
		h.raw(`<li><a href="/simulation">Upload a policy document for an impact report</a></li>`)
		if viewer.IsAdmin() {
			h.raw(`<li><a href="/admin/tariffs">Manage tariffs</a></li><li><a href="/admin/users">Manage users</a></li>`)
		}
		h.raw(`</ul>`)
	})
}

// ErrorPage shows a failure message.
func ErrorPage(status int, message string) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>`)
		h.text(itoa(status))
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><p><a href="/">Back to home</a></p>`)
	})
}
