package rbac

import (
	"slices"
	"strings"
)

// Role represents a staff access tier.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEditor  Role = "editor"
	RoleViewer  Role = "viewer"
	RoleUploads Role = "uploads"
)

// Capability represents a discrete permission checked in handlers and templates.
type Capability string

const (
	CapDashboardView    Capability = "dashboard.view"
	CapProductsView     Capability = "products.view"
	CapProductsEdit     Capability = "products.edit"
	CapProductsDelete   Capability = "products.delete"
	CapCategoriesView   Capability = "categories.view"
	CapCategoriesEdit   Capability = "categories.edit"
	CapCategoriesDelete Capability = "categories.delete"
	CapMediaUpload      Capability = "media.upload"
	CapCatalogExport    Capability = "catalog.export"
)

// capabilityRoles maps each capability to the roles permitted to use it.
var capabilityRoles = map[Capability]Roles{
	CapDashboardView:    {RoleAdmin, RoleEditor, RoleViewer, RoleUploads},
	CapProductsView:     {RoleAdmin, RoleEditor, RoleViewer},
	CapProductsEdit:     {RoleAdmin, RoleEditor},
	CapProductsDelete:   {RoleAdmin},
	CapCategoriesView:   {RoleAdmin, RoleEditor, RoleViewer},
	CapCategoriesEdit:   {RoleAdmin, RoleEditor},
	CapCategoriesDelete: {RoleAdmin},
	CapMediaUpload:      {RoleAdmin, RoleEditor, RoleUploads},
	CapCatalogExport:    {RoleAdmin, RoleEditor, RoleViewer},
}

// Roles is a set of roles with intersection checks.
type Roles []Role

// Has returns true if the role exists in the set.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// Intersects returns true if any candidate role is also present in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	return slices.ContainsFunc(candidate, rs.Has)
}

// NormaliseRoles converts raw role strings into canonical, de-duplicated Role values.
func NormaliseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" || roles.Has(role) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// RolesForCapability returns the roles able to use the capability.
func RolesForCapability(capability Capability) Roles {
	return capabilityRoles[capability]
}

// HasAnyRole reports whether the user holds one of the required roles. Admins always do.
func HasAnyRole(userRoles []string, required Roles) bool {
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return required.Intersects(roles)
}

// HasCapability reports whether the roles grant the capability. Unknown capabilities are
// denied; the empty capability is always granted.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed := RolesForCapability(capability)
	if len(allowed) == 0 {
		return false
	}
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return allowed.Intersects(roles)
}

// CapabilitiesForRoles enumerates the capabilities granted to the roles.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability := range capabilityRoles {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}
