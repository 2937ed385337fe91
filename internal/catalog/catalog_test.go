package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

func TestCategoriesToNames(t *testing.T) {
	t.Parallel()

	all := CategoriesToNames()
	for _, c := range domain.Categories {
		assert.NotEmpty(t, all[c], c)
	}

	all[domain.CategoryGrains][0] = "Changed"
	assert.Equal(t, "Wheat", Names(domain.CategoryGrains)[0], "callers get a copy")
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	name, ok := Canonical(domain.CategoryVegetables, " green CHILLI ")
	assert.True(t, ok)
	assert.Equal(t, "Green Chilli", name)

	assert.False(t, Contains(domain.CategoryFruits, "Wheat"))
	assert.True(t, Contains(domain.CategoryOilseeds, "soybean"))
	assert.False(t, Contains("SPICES", "Turmeric"))
}
