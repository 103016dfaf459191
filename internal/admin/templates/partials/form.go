package partials

import (
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// Option is a select menu entry.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Field describes one labelled form control.
type Field struct {
	Name        string
	Label       string
	Value       string
	Type        string
	Placeholder string
	Required    bool
	Error       string
	Rows        int
	Step        string
	Options     []Option
}

const inputClass = "mt-1 w-full rounded-md border border-slate-300 px-3 py-2 text-sm focus:border-indigo-500 focus:outline-none"

// FieldError returns msg when field is the failing field.
func FieldError(field, failing, msg string) string {
	if field == failing {
		return msg
	}
	return ""
}

// TextField renders a labelled input.
func TextField(f Field) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		fieldOpen(m, f)
		kind := f.Type
		if kind == "" {
			kind = "text"
		}
		m.Void("input",
			helpers.A("type", kind),
			helpers.A("id", f.Name),
			helpers.A("name", f.Name),
			helpers.A("value", f.Value),
			helpers.When(f.Placeholder != "", helpers.A("placeholder", f.Placeholder)),
			helpers.When(f.Step != "", helpers.A("step", f.Step)),
			helpers.When(f.Required, helpers.A("aria-required", "true")),
			helpers.When(f.Error != "", helpers.A("aria-invalid", "true")),
			helpers.Class(inputClass, errorBorder(f)),
		)
		fieldClose(m, f)
	})
}

// TextArea renders a labelled multi-line input.
func TextArea(f Field) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		fieldOpen(m, f)
		rows := f.Rows
		if rows <= 0 {
			rows = 4
		}
		m.Open("textarea",
			helpers.A("id", f.Name),
			helpers.A("name", f.Name),
			helpers.A("rows", strconv.Itoa(rows)),
			helpers.When(f.Placeholder != "", helpers.A("placeholder", f.Placeholder)),
			helpers.When(f.Required, helpers.A("aria-required", "true")),
			helpers.When(f.Error != "", helpers.A("aria-invalid", "true")),
			helpers.Class(inputClass, errorBorder(f)),
		)
		m.Text(f.Value)
		m.Close("textarea")
		fieldClose(m, f)
	})
}

// Select renders a labelled dropdown. A placeholder becomes an empty first option.
func Select(f Field) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		fieldOpen(m, f)
		m.Open("select",
			helpers.A("id", f.Name),
			helpers.A("name", f.Name),
			helpers.When(f.Error != "", helpers.A("aria-invalid", "true")),
			helpers.Class(inputClass, errorBorder(f)),
		)
		if f.Placeholder != "" {
			m.Element("option", f.Placeholder, helpers.A("value", ""))
		}
		for _, opt := range f.Options {
			m.Element("option", opt.Label, helpers.A("value", opt.Value), helpers.When(opt.Selected, helpers.Flag("selected")))
		}
		m.Close("select")
		fieldClose(m, f)
	})
}

func fieldOpen(m *helpers.Markup, f Field) {
	m.Open("div", helpers.A("data-field", f.Name))
	m.Element("label", f.Label, helpers.A("for", f.Name), helpers.Class("block text-sm font-medium text-slate-700"))
}

func fieldClose(m *helpers.Markup, f Field) {
	if f.Error != "" {
		m.Element("p", f.Error, helpers.A("data-field-error", f.Name), helpers.Class("mt-1 text-xs text-rose-600"))
	}
	m.Close("div")
}

func errorBorder(f Field) string {
	if f.Error != "" {
		return "border-rose-500"
	}
	return ""
}
