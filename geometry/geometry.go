// Package geometry provides named inode/data-block count presets for new
// images, loaded from an embedded CSV the same way
// dargueta-disko/disks.go loads its embedded disk-geometry table.
package geometry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry names a pair of (inode count, data block count) suitable for
// passing to image.New.
type Geometry struct {
	Slug        string `csv:"slug"`
	Description string `csv:"description"`
	InodeCount  int    `csv:"inode_count"`
	DBlockCount uint32 `csv:"dblock_count"`
}

//go:embed geometries.csv
var rawCSV string

var presets map[string]Geometry

func init() {
	presets = make(map[string]Geometry)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := presets[row.Slug]; exists {
			return fmt.Errorf("duplicate geometry slug %q", row.Slug)
		}
		presets[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("geometry: malformed embedded geometries.csv: %v", err))
	}
}

// Get returns the named preset geometry.
func Get(slug string) (Geometry, error) {
	g, ok := presets[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined geometry named %q", slug)
	}
	return g, nil
}

// Names returns every available preset slug.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
