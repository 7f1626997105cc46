package templates

import (
	"net/url"

	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffview"
)

// AdminTariffsView is the tariff management list.
type AdminTariffsView struct {
	Tariffs []apiclient.Tariff
	Names   tariffview.Names
}

// AdminTariffs lists tariffs with management actions.
func AdminTariffs(view AdminTariffsView) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Manage tariffs</h1><p><a href="/admin/tariffs/new">Add tariff</a></p>`)
		if len(view.Tariffs) == 0 {
			h.raw(`<p>No tariffs yet.</p>`)
			return
		}
		h.raw(`<table><thead><tr><th>Lane</th><th>Effective</th><th>Expiry</th><th>Ad valorem</th><th>Specific</th><th>Status</th><th>Products</th><th>Actions</th></tr></thead><tbody>`)
		for _, t := range view.Tariffs {
			base := "/admin/tariffs/" + url.PathEscape(t.ID)
			h.raw(`<tr><td>`)
			h.text(view.Names.Name(t.OriginCountry) + " → " + view.Names.Name(t.DestCountry))
			h.raw(`</td><td>`)
			h.text(t.EffectiveDate)
			h.raw(`</td><td>`)
			if t.ExpiryDate != nil {
				h.text(*t.ExpiryDate)
			} else {
				h.text("-")
			}
			h.raw(`</td><td>`)
			h.text(Percent(t.AdValoremRate, 2))
			h.raw(`</td><td>`)
			if t.SpecificRate != nil {
				h.text(Money(*t.SpecificRate))
			} else {
				h.text("-")
			}
			h.raw(`</td><td>`)
			if t.Enabled {
				h.text("Enabled")
			} else {
				h.text("Disabled")
			}
			h.raw(`</td><td><ul>`)
			for _, p := range t.Products {
				h.raw(`<li>`)
				h.text(p.HTSCode + " " + p.Name)
				h.raw(" ")
				h.postButton(base+"/products/"+url.PathEscape(p.HTSCode)+"/delete", "Remove", nil)
				h.raw(`</li>`)
			}
			h.raw(`</ul><form method="post" class="inline"`)
			h.attr("action", base+"/products")
			h.raw(`><input name="name" placeholder="Product name"><input name="hts_code" placeholder="HTS code"><button type="submit">Link</button></form></td><td>`)
			h.raw(`<a`)
			h.attr("href", base+"/edit")
			h.raw(`>Edit</a> `)
			h.postButton(base+"/delete", "Expire", map[string]string{"soft": "true"})
			h.postButton(base+"/delete", "Delete", map[string]string{"soft": "false"})
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}

// TariffFormValues holds raw form input. AdValorem is a percentage.
type TariffFormValues struct {
	Origin        string
	Dest          string
	EffectiveDate string
	ExpiryDate    string
	AdValorem     string
	Specific      string
	HTSCode       string
	Enabled       bool
}

// TariffFormView is the create or edit form state.
type TariffFormView struct {
	ID        string
	Countries []apiclient.Country
	Values    TariffFormValues
	Error     string
	Fields    map[string]string
}

// TariffForm renders the create form, or the edit form when ID is set.
func TariffForm(view TariffFormView) templ.Component {
	return component(func(h *html) {
		editing := view.ID != ""
		action := "/admin/tariffs"
		if editing {
			action += "/" + url.PathEscape(view.ID)
			h.raw(`<h1>Edit tariff</h1>`)
		} else {
			h.raw(`<h1>Add tariff</h1>`)
		}
		h.alert(view.Error)
		h.raw(`<form method="post"`)
		h.attr("action", action)
		h.raw(`>`)
		countrySelect(h, "origin", "Origin country", view.Countries, view.Values.Origin)
		h.fieldError(view.Fields, "originCountry")
		countrySelect(h, "dest", "Destination country", view.Countries, view.Values.Dest)
		h.fieldError(view.Fields, "destCountry")
		h.input("date", "effective_date", view.Values.EffectiveDate, "Effective date", true)
		h.fieldError(view.Fields, "effectiveDate")
		h.input("date", "expiry_date", view.Values.ExpiryDate, "Expiry date", false)
		h.fieldError(view.Fields, "expiryDate")
		h.input("text", "ad_valorem", view.Values.AdValorem, "Ad valorem rate (%)", false)
		h.fieldError(view.Fields, "adValoremRate")
		h.input("text", "specific", view.Values.Specific, "Specific rate per unit", false)
		h.fieldError(view.Fields, "specificRate")
		if editing {
			h.raw(`<label><input type="checkbox" name="enabled" value="true"`)
			h.flag("checked", view.Values.Enabled)
			h.raw(`> Enabled</label>`)
		} else {
			h.input("text", "hts_code", view.Values.HTSCode, "HTS code", true)
			h.fieldError(view.Fields, "htsCode")
		}
		h.raw(`<button type="submit">Save</button> <a href="/admin/tariffs">Cancel</a></form>`)
	})
}

// UserAction is a pending user management action.
type UserAction struct {
	Action string
	Email  string
}

// UsersView is the user management page state.
type UsersView struct {
	Viewer  apiclient.User
	Users   []apiclient.User
	Confirm *UserAction
}

// Actions lists what viewer may do to target.
type Actions struct {
	Upgrade   bool
	Downgrade bool
	Delete    bool
}

// AllowedActions mirrors the API role rules so forbidden actions stay hidden.
func AllowedActions(viewer, target apiclient.User) Actions {
	if viewer.Email == target.Email {
		return Actions{}
	}
	switch viewer.Role {
	case apiclient.RoleSuperAdmin:
		return Actions{
			Upgrade:   target.Role == apiclient.RoleUser,
			Downgrade: target.Role == apiclient.RoleAdmin,
			Delete:    true,
		}
	case apiclient.RoleAdmin:
		return Actions{
			Upgrade: target.Role == apiclient.RoleUser,
			Delete:  target.Role == apiclient.RoleUser,
		}
	default:
		return Actions{}
	}
}

var actionLabels = map[string]string{
	"upgrade":   "Upgrade to admin",
	"downgrade": "Downgrade to user",
	"delete":    "Delete",
}

// Users renders the account table.
func Users(view UsersView) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Users</h1>`)
		if c := view.Confirm; c != nil {
			h.raw(`<div class="notice notice-warning"><p>`)
			h.text(actionLabels[c.Action] + " " + c.Email + "?")
			h.raw(`</p>`)
			h.postButton("/admin/users/"+url.PathEscape(c.Action), "Confirm", map[string]string{"email": c.Email})
			h.raw(` <a href="/admin/users">Cancel</a></div>`)
		}
		h.raw(`<table><thead><tr><th>Email</th><th>Role</th><th>Created</th><th>Actions</th></tr></thead><tbody>`)
		for _, u := range view.Users {
			h.raw(`<tr><td>`)
			h.text(u.Email)
			h.raw(`</td><td>`)
			h.text(RoleLabel(u.Role))
			h.raw(`</td><td>`)
			h.text(u.CreatedAt.Format("2006-01-02"))
			h.raw(`</td><td>`)
			allowed := AllowedActions(view.Viewer, u)
			for _, action := range []struct {
				name string
				ok   bool
			}{{"upgrade", allowed.Upgrade}, {"downgrade", allowed.Downgrade}, {"delete", allowed.Delete}} {
				if !action.ok {
					continue
				}
				query := url.Values{"confirm": {action.name}, "email": {u.Email}}
				h.raw(`<a`)
				h.attr("href", "/admin/users?"+query.Encode())
				h.raw(`>`)
				h.text(actionLabels[action.name])
				h.raw(`</a> `)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}
