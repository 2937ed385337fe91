package location

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	many := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		many = append(many, fmt.Sprintf("Village %02d", i))
	}

	tests := []struct {
		name    string
		entries []string
		query   string
		want    []string
	}{
		{
			name:    "prefix ranked before contains",
			entries: []string{"Upsatpur", "Satara City", "Karad"},
			query:   "sat",
			want:    []string{"Satara City", "Upsatpur"},
		},
		{
			name:    "case insensitive",
			entries: []string{"Haveli", "Shirur"},
			query:   "  HAV ",
			want:    []string{"Haveli"},
		},
		{
			name:    "empty query",
			entries: []string{"Haveli"},
			query:   "",
			want:    []string{},
		},
		{
			name:    "no match",
			entries: []string{"Haveli"},
			query:   "xyz",
			want:    []string{},
		},
		{
			name:    "keeps input order within a rank",
			entries: []string{"Pune City", "Nagpur City", "Pimpri"},
			query:   "p",
			want:    []string{"Pune City", "Pimpri", "Nagpur City"},
		},
		{
			name:    "capped",
			entries: many,
			query:   "village",
			want:    many[:MaxResults],
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Search(tt.entries, tt.query))
		})
	}
}

func TestDirectory(t *testing.T) {
	t.Parallel()

	d := NewDirectory([]Region{
		{Name: "Satara", SubRegions: []string{"Karad", "Satara City", "Upsatpur", "Wai"}},
		{Name: "Pune", SubRegions: []string{"Haveli", "Baramati"}},
	})

	assert.Equal(t, []string{"Satara", "Pune"}, d.Regions())
	assert.Equal(t, []string{"Satara City", "Upsatpur"}, d.SearchSubRegions("satara", "sat"))
	assert.Equal(t, []string{}, d.SearchSubRegions("Mumbai", "sat"))
	assert.Nil(t, d.SubRegions("Mumbai"))
	assert.Equal(t, []string{"Pune"}, d.SearchRegions("un"))

	loc, err := d.Compose("pune", "haveli")
	require.NoError(t, err)
	assert.Equal(t, "Haveli, Pune", loc)

	_, err = d.Compose("Pune", "Karad")
	assert.Error(t, err)
	_, err = d.Compose("Mumbai", "Haveli")
	assert.Error(t, err)
}

func TestDefaultDirectory(t *testing.T) {
	t.Parallel()

	d := Default()
	require.NotEmpty(t, d.Regions())
	for _, r := range d.Regions() {
		assert.NotEmpty(t, d.SubRegions(r), r)
	}
	assert.Equal(t, []string{"Satara City"}, d.SearchSubRegions("Satara", "sat"))
}
