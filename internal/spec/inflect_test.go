package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Item", "Items"},
		{"Category", "Categories"},
		{"Bus", "Buses"},
		{"Child", "Childs"},
		{"Box", "Boxes"},
		{"Match", "Matches"},
		{"Wish", "Wishes"},
		{"Day", "Days"},
		{"Key", "Keys"},
		{"Company", "Companies"},
		{"Address", "Addresses"},
		{"user", "users"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Pluralize(tt.in))
		})
	}
}

func TestCaseHelpers(t *testing.T) {
	assert.Equal(t, "line_items", SnakeCase("LineItems"))
	assert.Equal(t, "categories", SnakeCase("Categories"))
	assert.Equal(t, "line-items", KebabCase("LineItems"))
	assert.Equal(t, "lineItem", CamelCase("LineItem"))
	assert.Equal(t, "Status", PascalCase("status"))
	assert.Equal(t, "", CamelCase(""))
}

func TestSuggestFrom(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("Fastify", "fastify"))
	assert.Equal(t, 1, Levenshtein("fastfy", "fastify"))
	assert.Equal(t, "did you mean 'fastify'?", SuggestFrom("fastfy", []string{"express", "fastify"}, 2))
	assert.Empty(t, SuggestFrom("zzz", []string{"express", "fastify"}, 2))
}
