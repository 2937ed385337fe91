package location

import (
	"fmt"
	"strings"
)

// Directory is a read-only region to sub-region lookup
type Directory struct {
	regions []string
	subs    map[string][]string
}

// Region is one directory entry
type Region struct {
	Name       string
	SubRegions []string
}

// NewDirectory builds a directory from regions in display order
func NewDirectory(regions []Region) *Directory {
	d := &Directory{subs: make(map[string][]string, len(regions))}
	for _, r := range regions {
		if _, dup := d.subs[r.Name]; !dup {
			d.regions = append(d.regions, r.Name)
		}
		d.subs[r.Name] = append([]string(nil), r.SubRegions...)
	}
	return d
}

// Default returns the built-in directory of Maharashtra districts and talukas
func Default() *Directory {
	return NewDirectory(maharashtra)
}

// Regions returns every region name
func (d *Directory) Regions() []string {
	return append([]string(nil), d.regions...)
}

// SubRegions returns the sub-regions of region, or nil for an unknown region.
func (d *Directory) SubRegions(region string) []string {
	name, ok := d.lookup(region)
	if !ok {
		return nil
	}
	return append([]string(nil), d.subs[name]...)
}

// SearchRegions runs Search over region names
func (d *Directory) SearchRegions(query string) []string {
	return Search(d.regions, query)
}

// SearchSubRegions runs Search over the sub-regions of region
func (d *Directory) SearchSubRegions(region, query string) []string {
	name, ok := d.lookup(region)
	if !ok {
		return []string{}
	}
	return Search(d.subs[name], query)
}

// Compose validates the pair and formats it as a listing location
func (d *Directory) Compose(region, subRegion string) (string, error) {
	name, ok := d.lookup(region)
	if !ok {
		return "", fmt.Errorf("unknown region %q", region)
	}
	sub := strings.TrimSpace(subRegion)
	for _, s := range d.subs[name] {
		if strings.EqualFold(s, sub) {
			return s + ", " + name, nil
		}
	}
	return "", fmt.Errorf("unknown sub-region %q in %s", subRegion, name)
}

func (d *Directory) lookup(region string) (string, bool) {
	region = strings.TrimSpace(region)
	if _, ok := d.subs[region]; ok {
		return region, true
	}
	for _, r := range d.regions {
		if strings.EqualFold(r, region) {
			return r, true
		}
	}
	return "", false
}
