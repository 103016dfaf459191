package catalog

import "strings"

const (
	StatusPublished = "Published"
	StatusDraft     = "Draft"
	StatusLowStock  = "Low Stock"
)

const (
	TagAllProducts   = "All Products"
	TagAllCategories = "All Categories"
)

// ProductTags are the filter tags shown above the product list.
var ProductTags = []string{TagAllProducts, StatusPublished, StatusLowStock, StatusDraft}

// CategoryTags are the filter tags shown above the category list.
var CategoryTags = []string{TagAllCategories, StatusPublished, StatusDraft}

// NormalizeStatus maps a raw status onto its canonical label; empty means Draft.
func NormalizeStatus(status string) string {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return StatusDraft
	}
	for _, known := range []string{StatusPublished, StatusDraft, StatusLowStock} {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return trimmed
}

// IsAllTag reports whether tag is one of the "show everything" tags (or empty).
func IsAllTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag == "" || strings.EqualFold(tag, TagAllProducts) || strings.EqualFold(tag, TagAllCategories)
}

// MatchesTag reports whether an entity with status belongs under tag.
func MatchesTag(status, tag string) bool {
	if IsAllTag(tag) {
		return true
	}
	return strings.EqualFold(NormalizeStatus(status), strings.TrimSpace(tag))
}

// ProductMatchesTag is the product tag predicate.
func ProductMatchesTag(p Product, tag string) bool {
	return MatchesTag(p.Status, tag)
}

// CategoryMatchesTag is the category tag predicate.
func CategoryMatchesTag(c Category, tag string) bool {
	return MatchesTag(c.Status, tag)
}

// ValidTag reports whether tag is offered for the given tag set.
func ValidTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

// StatusTone maps a status to the badge tone used in list tables.
func StatusTone(status string) string {
	switch NormalizeStatus(status) {
	case StatusPublished:
		return "success"
	case StatusLowStock:
		return "warning"
	case StatusDraft:
		return "muted"
	default:
		return "info"
	}
}
