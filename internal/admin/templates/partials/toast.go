package partials

import (
	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
)

// Toast is a notification carried over a redirect through the session.
type Toast struct {
	Message string
	Tone    string
}

// ToastRegion renders the live region that HX-Trigger toasts are appended to, seeded with the
// flash toast of the previous request when there is one.
func ToastRegion(initial *Toast) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		m.Open("div",
			helpers.A("id", "toast-region"),
			helpers.A("aria-live", "polite"),
			helpers.Class("pointer-events-none fixed right-4 top-4 z-50 flex w-80 flex-col gap-2"),
			helpers.A("data-toast-region", ""),
		)
		if initial != nil && initial.Message != "" {
			m.Render(ToastItem(*initial))
		}
		m.Close("div")
	})
}

// ToastItem renders a single toast.
func ToastItem(t Toast) templ.Component {
	tone := t.Tone
	if tone == "" {
		tone = "info"
	}
	return helpers.Component(func(m *helpers.Markup) {
		m.Open("div",
			helpers.A("role", "status"),
			helpers.A("data-toast", tone),
			helpers.Class("pointer-events-auto rounded-md px-4 py-3 text-sm shadow", toastClass(tone)),
		)
		m.Text(t.Message)
		m.Close("div")
	})
}

func toastClass(tone string) string {
	switch tone {
	case "success":
		return "bg-emerald-600 text-white"
	case "error":
		return "bg-rose-600 text-white"
	case "warning":
		return "bg-amber-500 text-white"
	default:
		return "bg-slate-800 text-white"
	}
}
