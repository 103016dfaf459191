package dashboard

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"finitefield.org/catalog-admin/internal/admin/templates/helpers"
	"finitefield.org/catalog-admin/internal/admin/templates/layouts"
)

// Index renders the dashboard page. KPI and alert panels poll their fragment endpoints.
func Index(data PageData) templ.Component {
	body := helpers.Component(func(m *helpers.Markup) {
		m.Element("h1", data.Title, helpers.Class("mb-6 text-2xl font-semibold"))
		poll := "every " + strconv.Itoa(max(data.PollIntervalSecond, 10)) + "s"

		m.Open("div", helpers.A("hx-get", data.KPIEndpoint), helpers.A("hx-trigger", poll), helpers.A("hx-swap", "innerHTML"), helpers.A("data-kpi-panel", ""))
		m.Render(KPIFragment(data.KPIFragment))
		m.Close("div")

		m.Open("div", helpers.Class("mt-6 grid gap-6 lg:grid-cols-3"))
		m.Open("section", helpers.Class("rounded-lg border border-slate-200 bg-white p-6 lg:col-span-2"))
		m.Element("h2", "Needs attention", helpers.Class("mb-4 text-base font-semibold"))
		m.Open("div", helpers.A("hx-get", data.AlertsEndpoint), helpers.A("hx-trigger", poll), helpers.A("hx-swap", "innerHTML"), helpers.A("data-alerts-panel", ""))
		m.Render(AlertsFragment(data.AlertsFragment))
		m.Close("div")
		m.Close("section")

		m.Open("section", helpers.Class("rounded-lg border border-slate-200 bg-white p-6"))
		m.Element("h2", "Recent activity", helpers.Class("mb-4 text-base font-semibold"))
		m.Render(activityFeed(data.Activity))
		m.Close("section")
		m.Close("div")
	})
	return layouts.Base(layouts.PageMeta{Title: data.Title, Breadcrumbs: data.Breadcrumbs, Flash: data.Flash}, body)
}

// KPIFragment renders the metric cards.
func KPIFragment(data KPIFragmentData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		if data.Error != "" {
			m.Element("p", data.Error, helpers.A("role", "alert"), helpers.Class("rounded-md bg-rose-50 p-4 text-sm text-rose-700"))
			return
		}
		m.Open("div", helpers.Class("grid gap-4 sm:grid-cols-2 xl:grid-cols-4"))
		for _, kpi := range data.KPIs {
			m.Open("article", helpers.A("data-kpi", kpi.ID), helpers.Class("rounded-lg border border-slate-200 bg-white p-5"))
			m.Element("p", kpi.Label, helpers.Class("text-sm text-slate-500"))
			m.Element("p", kpi.Value, helpers.A("data-kpi-value", ""), helpers.Class("mt-1 text-2xl font-semibold tabular-nums"))
			m.Element("p", kpi.DeltaText, helpers.A("data-trend", kpi.Trend), helpers.Class("mt-1 text-xs", trendClass(kpi.Trend)))
			if points := sparklinePoints(kpi.Sparkline); points != "" {
				m.Open("svg", helpers.A("viewBox", "0 0 100 100"), helpers.A("preserveAspectRatio", "none"), helpers.A("aria-hidden", "true"), helpers.Class("mt-3 h-8 w-full text-indigo-500"))
				m.Void("polyline", helpers.A("points", points), helpers.A("fill", "none"), helpers.A("stroke", "currentColor"), helpers.A("stroke-width", "4"))
				m.Close("svg")
			}
			m.Close("article")
		}
		m.Close("div")
	})
}

// AlertsFragment renders the low-stock alert list.
func AlertsFragment(data AlertsFragmentData) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		if data.Error != "" {
			m.Element("p", data.Error, helpers.A("role", "alert"), helpers.Class("text-sm text-rose-600"))
			return
		}
		if len(data.Alerts) == 0 {
			m.Element("p", "Nothing needs attention.", helpers.Class("text-sm text-slate-500"))
			return
		}
		m.Open("ul", helpers.Class("divide-y divide-slate-100"))
		for _, alert := range data.Alerts {
			m.Open("li", helpers.A("data-alert", alert.ID), helpers.Class("flex items-start justify-between gap-4 py-3"))
			m.Open("div")
			m.Element("span", alert.Severity, helpers.Class(helpers.BadgeClass(alert.Severity)))
			m.Element("p", alert.Title, helpers.Class("mt-1 text-sm font-medium"))
			m.Element("p", alert.Message, helpers.Class("text-sm text-slate-500"))
			m.Close("div")
			if alert.ActionURL != "" {
				m.Element("a", alert.Action, helpers.Href(alert.ActionURL), helpers.Class("text-sm text-indigo-600 hover:text-indigo-500"))
			}
			m.Close("li")
		}
		m.Close("ul")
	})
}

func activityFeed(items []ActivityItem) templ.Component {
	return helpers.Component(func(m *helpers.Markup) {
		if len(items) == 0 {
			m.Element("p", "No recent activity.", helpers.Class("text-sm text-slate-500"))
			return
		}
		now := time.Now()
		m.Open("ol", helpers.Class("space-y-4"), helpers.A("data-activity", ""))
		for _, item := range items {
			m.Open("li", helpers.Class("flex gap-3"))
			m.Element("span", item.Icon, helpers.A("aria-hidden", "true"))
			m.Open("div", helpers.Class("min-w-0"))
			if item.LinkURL != "" {
				m.Element("a", item.Title, helpers.Href(item.LinkURL), helpers.Class("text-sm font-medium hover:text-indigo-600"))
			} else {
				m.Element("p", item.Title, helpers.Class("text-sm font-medium"))
			}
			m.Element("p", item.Detail, helpers.Class("text-xs text-slate-500"))
			m.Element("time", helpers.Relative(item.Occurred, now), helpers.A("datetime", item.Occurred.Format(time.RFC3339)), helpers.Class("text-xs text-slate-400"))
			m.Close("div")
			m.Close("li")
		}
		m.Close("ol")
	})
}

func trendClass(trend string) string {
	switch trend {
	case "up":
		return "text-emerald-600"
	case "down":
		return "text-rose-600"
	default:
		return "text-slate-500"
	}
}
