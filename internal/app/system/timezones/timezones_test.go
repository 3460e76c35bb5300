package timezones

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	require.NoError(t, Load())
	require.NoError(t, Load())
}

func TestAll(t *testing.T) {
	zones, err := All()
	require.NoError(t, err)
	require.NotEmpty(t, zones)

	for _, z := range zones {
		assert.NotEmpty(t, z.ID)
		assert.NotEmpty(t, z.Label, "zone %s", z.ID)
		_, err := time.LoadLocation(z.ID)
		assert.NoError(t, err, "zone %s must be loadable", z.ID)
	}
}

func TestValid(t *testing.T) {
	for _, id := range []string{"UTC", "Asia/Kolkata", "America/New_York", "Europe/London"} {
		assert.True(t, Valid(id), id)
	}
	for _, id := range []string{"", "Invalid/Timezone", "Local"} {
		assert.False(t, Valid(id), id)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "India (IST, UTC+5:30)", Label("Asia/Kolkata"))
	assert.Equal(t, "Invalid/Timezone", Label("Invalid/Timezone"))
}

func TestLocation(t *testing.T) {
	loc, ok := Location("Asia/Kolkata", time.UTC)
	require.True(t, ok)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	loc, ok = Location("Mars/Olympus", time.UTC)
	assert.False(t, ok)
	assert.Equal(t, time.UTC, loc)
}

func TestGroups(t *testing.T) {
	groups, err := Groups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)

	all, _ := All()
	total := 0
	for _, g := range groups {
		assert.NotEmpty(t, g.Region)
		assert.True(t, sort.SliceIsSorted(g.Zones, func(i, j int) bool { return g.Zones[i].Label < g.Zones[j].Label }), g.Region)
		total += len(g.Zones)
	}
	assert.Equal(t, len(all), total)
	assert.True(t, sort.SliceIsSorted(groups, func(i, j int) bool { return groups[i].Region < groups[j].Region }))
}
