package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC.
// Anything other than "asc" (any case) yields DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// RegistrationSortFields are the columns administrators may order listings by
var RegistrationSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"name":            true,
	"city":            true,
	"locality":        true,
	"status":          true,
	"total_herd":      true,
	"program_animals": true,
	"property_area":   true,
	"protocol_id":     true,
}

// orderClause builds a whitelisted ORDER BY clause for registrations
func orderClause(orderBy, orderDir string) string {
	return ValidateSortField(orderBy, RegistrationSortFields, "created_at") + " " + ValidateSortOrder(orderDir)
}
