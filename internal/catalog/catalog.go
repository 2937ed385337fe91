// Package catalog holds the static mapping from crop category to crop names.
package catalog

import (
	"strings"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

var crops = map[domain.Category][]string{
	domain.CategoryGrains: {
		"Wheat", "Rice", "Maize", "Bajra", "Jowar", "Ragi", "Barley",
	},
	domain.CategoryVegetables: {
		"Tomato", "Potato", "Onion", "Brinjal", "Cabbage", "Cauliflower", "Okra", "Carrot", "Spinach", "Green Chilli",
	},
	domain.CategoryFruits: {
		"Mango", "Banana", "Grapes", "Pomegranate", "Orange", "Papaya", "Guava", "Sapota",
	},
	domain.CategoryOilseeds: {
		"Groundnut", "Soybean", "Mustard", "Sunflower", "Sesame", "Safflower",
	},
}

// CategoriesToNames returns a copy of the crop catalog
func CategoriesToNames() map[domain.Category][]string {
	out := make(map[domain.Category][]string, len(crops))
	for c, names := range crops {
		out[c] = append([]string(nil), names...)
	}
	return out
}

// Names returns the crops of one category in display order
func Names(category domain.Category) []string {
	return append([]string(nil), crops[category]...)
}

// Canonical returns the catalog spelling of name within category.
func Canonical(category domain.Category, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, n := range crops[category] {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// Contains reports whether name is a crop of category
func Contains(category domain.Category, name string) bool {
	_, ok := Canonical(category, name)
	return ok
}
