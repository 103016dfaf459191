package dashboard

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	admindashboard "finitefield.org/catalog-admin/internal/admin/dashboard"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestKPIFragmentRendersCards(t *testing.T) {
	t.Parallel()

	data := KPIFragmentPayload([]admindashboard.KPI{
		{ID: "products", Label: "Products", Value: "14", DeltaText: "3 added this week", Trend: admindashboard.TrendUp, Sparkline: []float64{1, 0, 2}},
		{ID: "low-stock", Label: "Low stock", Value: "3", Trend: admindashboard.TrendDown},
	})
	doc := render(t, KPIFragment(data))

	require.Equal(t, 2, doc.Find("[data-kpi]").Length())
	products := doc.Find(`[data-kpi="products"]`)
	require.Equal(t, "14", products.Find("[data-kpi-value]").Text())
	require.Equal(t, "up", products.Find("[data-trend]").AttrOr("data-trend", ""))
	require.Equal(t, "0.0,50.0 50.0,100.0 100.0,0.0", products.Find("polyline").AttrOr("points", ""))
	require.Equal(t, 0, doc.Find(`[data-kpi="low-stock"] svg`).Length())
}

func TestKPIFragmentError(t *testing.T) {
	t.Parallel()

	doc := render(t, KPIFragment(KPIFragmentData{Error: "Metrics are unavailable."}))
	require.Equal(t, 0, doc.Find("[data-kpi]").Length())
	require.Equal(t, "Metrics are unavailable.", doc.Find(`[role="alert"]`).Text())
}

func TestAlertsFragmentStates(t *testing.T) {
	t.Parallel()

	doc := render(t, AlertsFragment(AlertsFragmentPayload(nil)))
	require.Contains(t, doc.Text(), "Nothing needs attention.")

	doc = render(t, AlertsFragment(AlertsFragmentPayload([]admindashboard.Alert{
		{ID: "low-2", Severity: "warning", Title: "Silver Watch is low on stock", Message: "1 left", ActionURL: "/admin/products/2/edit", Action: "Restock", CreatedAt: time.Now()},
	})))
	alert := doc.Find(`[data-alert="low-2"]`)
	require.Equal(t, 1, alert.Length())
	require.Equal(t, "/admin/products/2/edit", alert.Find("a").AttrOr("href", ""))
	require.Equal(t, "Restock", alert.Find("a").Text())
}

func TestBuildPageDataEndpoints(t *testing.T) {
	t.Parallel()

	data := BuildPageData("/admin/", nil, nil, nil)
	require.Equal(t, "/admin/fragments/kpi", data.KPIEndpoint)
	require.Equal(t, "/admin/fragments/alerts", data.AlertsEndpoint)

	data = BuildPageData("/", nil, nil, nil)
	require.Equal(t, "/fragments/kpi", data.KPIEndpoint)
}

func TestSparklinePoints(t *testing.T) {
	t.Parallel()

	require.Empty(t, sparklinePoints(nil))
	require.Equal(t, "0,50 100,50", sparklinePoints([]float64{4}))
	require.Equal(t, "0.0,100.0 100.0,100.0", sparklinePoints([]float64{2, 2}))
}
