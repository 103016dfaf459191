package auth

import (
	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/layouts"
)

// LoginPage renders the sign-in form. The identity provider's client script fills id_token before
// the form submits; the field also accepts a pasted token for local development.
func LoginPage(data LoginPageData) templ.Component {
	body := helpers.Component(func(m *helpers.Markup) {
		m.Open("main", helpers.Class("w-full max-w-sm rounded-lg border border-slate-200 bg-white p-8 shadow-sm"))
		m.Element("h1", "Sign in", helpers.Class("text-xl font-semibold"))
		m.Element("p", "Catalog Admin", helpers.Class("mb-6 text-sm text-slate-500"))
		if data.Message != "" {
			m.Element("p", data.Message, helpers.A("role", "status"), helpers.A("data-login-message", ""), helpers.Class("mb-4 rounded-md bg-sky-50 p-3 text-sm text-sky-700"))
		}
		if data.Error != "" {
			m.Element("p", data.Error, helpers.A("role", "alert"), helpers.A("data-login-error", ""), helpers.Class("mb-4 rounded-md bg-rose-50 p-3 text-sm text-rose-700"))
		}

		m.Open("form", helpers.A("method", "post"), helpers.A("action", data.LoginPath), helpers.A("data-login-form", ""), helpers.Class("space-y-4"))
		m.Void("input", helpers.A("type", "hidden"), helpers.A("name", middleware.CSRFFormField), helpers.A("value", data.CSRFToken))
		m.Void("input", helpers.A("type", "hidden"), helpers.A("name", "next"), helpers.A("value", data.Next))

		m.Open("div")
		m.Element("label", "Email", helpers.A("for", "email"), helpers.Class("block text-sm font-medium text-slate-700"))
		m.Void("input", helpers.A("type", "email"), helpers.A("id", "email"), helpers.A("name", "email"), helpers.A("value", data.Email), helpers.A("autocomplete", "username"),
			helpers.Class("mt-1 w-full rounded-md border border-slate-300 px-3 py-2 text-sm"))
		m.Close("div")

		m.Open("div")
		m.Element("label", "ID token", helpers.A("for", "id_token"), helpers.Class("block text-sm font-medium text-slate-700"))
		m.Void("input", helpers.A("type", "password"), helpers.A("id", "id_token"), helpers.A("name", "id_token"), helpers.A("autocomplete", "current-password"),
			helpers.Class("mt-1 w-full rounded-md border border-slate-300 px-3 py-2 text-sm"))
		m.Close("div")

		m.Open("label", helpers.Class("flex items-center gap-2 text-sm text-slate-600"))
		m.Void("input", helpers.A("type", "checkbox"), helpers.A("name", "remember"), helpers.A("value", "true"), helpers.When(data.Remember, helpers.Flag("checked")))
		m.Text("Keep me signed in")
		m.Close("label")

		m.Element("button", "Sign in", helpers.A("type", "submit"), helpers.Class(helpers.ButtonClass(true), "w-full justify-center"))
		m.Close("form")
		m.Close("main")
	})
	return layouts.Bare("Sign in", body)
}
