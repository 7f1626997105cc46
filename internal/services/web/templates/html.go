// Package templates renders the server-side pages of the web frontend.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// html accumulates writes and keeps the first error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (h *html) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

// text writes escaped content.
func (h *html) text(value string) {
	h.raw(templ.EscapeString(value))
}

// attr writes ` name="value"` with value escaped.
func (h *html) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" ", name)
	}
}

func (h *html) render(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func (h *html) option(value, label string, selected bool) {
	h.raw("<option")
	h.attr("value", value)
	h.flag("selected", selected)
	h.raw(">")
	h.text(label)
	h.raw("</option>")
}

func (h *html) input(kind, name, value, label string, required bool) {
	h.raw(`<label>`)
	h.text(label)
	h.raw(`<input`)
	h.attr("type", kind)
	h.attr("name", name)
	if kind != "password" {
		h.attr("value", value)
	}
	h.flag("required", required)
	h.raw(`></label>`)
}

func (h *html) fieldError(fields map[string]string, name string) {
	if msg := fields[name]; msg != "" {
		h.raw(`<p class="field-error">`)
		h.text(msg)
		h.raw(`</p>`)
	}
}

func (h *html) alert(message string) {
	if message == "" {
		return
	}
	h.raw(`<div class="notice notice-error" role="alert">`)
	h.text(message)
	h.raw(`</div>`)
}

// postButton renders a single-button form.
func (h *html) postButton(action, label string, hidden map[string]string) {
	h.raw(`<form method="post" class="inline"`)
	h.attr("action", action)
	h.raw(">")
	for name, value := range hidden {
		h.raw(`<input type="hidden"`)
		h.attr("name", name)
		h.attr("value", value)
		h.raw(">")
	}
	h.raw(`<button type="submit">`)
	h.text(label)
	h.raw(`</button></form>`)
}

func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		fn(h)
		return h.err
	})
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
