// Package timezones serves the curated zone list offered by the audit log's
// timezone picker.
package timezones

import (
	"embed"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

//go:embed timezonedata/timezones.json
var FS embed.FS

type Zone struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Region string `json:"region,omitempty"`
}

type ZoneGroup struct {
	Region string
	Zones  []Zone
}

type catalog struct {
	zones  []Zone
	byID   map[string]Zone
	groups []ZoneGroup
}

var loadCatalog = sync.OnceValues(func() (*catalog, error) {
	data, err := FS.ReadFile("timezonedata/timezones.json")
	if err != nil {
		return nil, err
	}
	var list []Zone
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	c := &catalog{zones: list, byID: make(map[string]Zone, len(list))}
	byRegion := make(map[string][]Zone)
	for _, z := range list {
		c.byID[z.ID] = z
		region := z.Region
		if region == "" {
			region = "Other"
		}
		byRegion[region] = append(byRegion[region], z)
	}
	for region, zs := range byRegion {
		sort.SliceStable(zs, func(i, j int) bool { return zs[i].Label < zs[j].Label })
		c.groups = append(c.groups, ZoneGroup{Region: region, Zones: zs})
	}
	sort.Slice(c.groups, func(i, j int) bool { return c.groups[i].Region < c.groups[j].Region })
	return c, nil
})

// Load parses the embedded list. Call it at startup to fail fast.
func Load() error {
	_, err := loadCatalog()
	return err
}

// All returns the zones in file order.
func All() ([]Zone, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.zones, nil
}

// Label returns the display label for id, or id itself when unknown.
func Label(id string) string {
	c, err := loadCatalog()
	if err != nil {
		return id
	}
	if z, ok := c.byID[id]; ok && z.Label != "" {
		return z.Label
	}
	return id
}

// Valid reports whether id is in the curated list.
func Valid(id string) bool {
	c, err := loadCatalog()
	if err != nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// Location resolves a curated id. Unknown or empty ids yield fallback and
// false.
func Location(id string, fallback *time.Location) (*time.Location, bool) {
	if !Valid(id) {
		return fallback, false
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return fallback, false
	}
	return loc, true
}

// Groups returns the zones grouped by region, regions and labels sorted.
func Groups() ([]ZoneGroup, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.groups, nil
}
