package navigation

import (
	"strings"

	"finitefield.org/catalog-admin/internal/admin/rbac"
)

// MenuItem is a single sidebar link.
type MenuItem struct {
	Key         string
	Label       string
	Icon        string
	Capability  rbac.Capability
	Href        string
	Pattern     string
	MatchPrefix bool
}

// MenuGroup is a titled block of sidebar links. A group capability hides the whole group.
type MenuGroup struct {
	Key        string
	Label      string
	Capability rbac.Capability
	Items      []MenuItem
}

// BuildMenu returns the sidebar menu with links rooted at basePath.
func BuildMenu(basePath string) []MenuGroup {
	base := strings.TrimRight(strings.TrimSpace(basePath), "/")
	link := func(suffix string) string {
		if base == "" {
			return suffix
		}
		return base + suffix
	}
	root := base
	if root == "" {
		root = "/"
	}

	return []MenuGroup{
		{
			Key:   "overview",
			Label: "Overview",
			Items: []MenuItem{
				{
					Key:        "dashboard",
					Label:      "Dashboard",
					Icon:       "📊",
					Capability: rbac.CapDashboardView,
					Href:       root,
					Pattern:    root,
				},
			},
		},
		{
			Key:   "catalog",
			Label: "Catalog",
			Items: []MenuItem{
				{
					Key:         "products",
					Label:       "Product",
					Icon:        "📦",
					Capability:  rbac.CapProductsView,
					Href:        link("/products"),
					Pattern:     link("/products"),
					MatchPrefix: true,
				},
				{
					Key:         "categories",
					Label:       "Categories",
					Icon:        "🗂️",
					Capability:  rbac.CapCategoriesView,
					Href:        link("/categories"),
					Pattern:     link("/categories"),
					MatchPrefix: true,
				},
			},
		},
	}
}
