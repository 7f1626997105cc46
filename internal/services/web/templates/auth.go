package templates

import (
	"github.com/a-h/templ"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// AuthForm is the login and signup form state.
type AuthForm struct {
	Email  string
	Error  string
	Fields map[string]string
}

// Login is the sign-in page.
func Login(form AuthForm) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Log in</h1>`)
		h.alert(form.Error)
		h.raw(`<form method="post" action="/login">`)
		h.input("email", "email", form.Email, "Email", true)
		h.fieldError(form.Fields, "email")
		h.input("password", "password", "", "Password", true)
		h.fieldError(form.Fields, "password")
		h.raw(`<button type="submit">Log in</button></form>`)
		h.raw(`<p>No account yet? <a href="/signup">Sign up</a></p>`)
	})
}

// Signup is the registration page.
func Signup(form AuthForm) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Create an account</h1>`)
		h.alert(form.Error)
		h.raw(`<form method="post" action="/signup">`)
		h.input("email", "email", form.Email, "Email", true)
		h.fieldError(form.Fields, "email")
		h.input("password", "password", "", "Password", true)
		h.fieldError(form.Fields, "password")
		h.input("password", "confirm", "", "Confirm password", true)
		h.fieldError(form.Fields, "confirm")
		h.raw(`<button type="submit">Sign up</button></form>`)
		h.raw(`<p>Already registered? <a href="/login">Log in</a></p>`)
	})
}

// PasswordForm is the change password form state.
type PasswordForm struct {
	Error  string
	Fields map[string]string
}

// Profile shows the account and the change password form.
func Profile(user apiclient.User, form PasswordForm) templ.Component {
	return component(func(h *html) {
		h.raw(`<h1>Profile</h1><dl><dt>Email</dt><dd>`)
		h.text(user.Email)
		h.raw(`</dd><dt>Role</dt><dd>`)
		h.text(RoleLabel(user.Role))
		h.raw(`</dd><dt>Member since</dt><dd>`)
		h.text(user.CreatedAt.Format("2 January 2006"))
		h.raw(`</dd></dl><h2>Change password</h2>`)
		h.alert(form.Error)
		h.raw(`<form method="post" action="/profile/password">`)
		h.input("password", "current_password", "", "Current password", true)
		h.fieldError(form.Fields, "currentPassword")
		h.input("password", "new_password", "", "New password", true)
		h.fieldError(form.Fields, "newPassword")
		h.input("password", "confirm", "", "Confirm new password", true)
		h.fieldError(form.Fields, "confirm")
		h.raw(`<button type="submit">Update password</button></form>`)
	})
}

// RoleLabel is the display name of a role.
func RoleLabel(role string) string {
	switch role {
	case apiclient.RoleSuperAdmin:
		return "Super admin"
	case apiclient.RoleAdmin:
		return "Admin"
	default:
		return "User"
	}
}
