package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "sideways", "DESC"},
		{"injection attempt returns DESC", "ASC; DROP TABLE registrations;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "created_at"},
		{"whitelisted column", "city", "city"},
		{"whitespace trimmed", "  total_herd ", "total_herd"},
		{"unknown column returns default", "cpf", "created_at"},
		{"case sensitive", "NAME", "created_at"},
		{"injection attempt returns default", "name; DROP TABLE registrations;--", "created_at"},
		{"subquery returns default", "id, (SELECT cpf FROM registrations)", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, RegistrationSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "created_at DESC", orderClause("", ""))
	assert.Equal(t, "name ASC", orderClause("name", "asc"))
	assert.Equal(t, "created_at DESC", orderClause("name' --", "asc; --"))
}
