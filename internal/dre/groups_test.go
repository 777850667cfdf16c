package dre

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	def, ok := Lookup(GroupRoB)
	require.True(t, ok)
	assert.Equal(t, 1, def.Sign)
	assert.False(t, def.Derived)

	_, ok = Lookup(Group("XYZ"))
	assert.False(t, ok)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("RoB"))
	assert.True(t, Valid("TRANSF"))
	assert.False(t, Valid("XYZ"))

	// Derived lines are computed, never assigned to a category.
	assert.False(t, Valid("RO"))
	assert.False(t, Valid("LLE"))
}

func TestGroupClassifiers(t *testing.T) {
	assert.True(t, IsOperatingGroup("CF"))
	assert.False(t, IsOperatingGroup("RNOP"))
	assert.False(t, IsOperatingGroup("TRANSF"))

	assert.True(t, IsGrossRevenueGroup("RoB"))
	assert.False(t, IsGrossRevenueGroup("RNOP"))
}

func TestGroupsTableOrdering(t *testing.T) {
	last := -1
	for _, g := range Groups {
		assert.Greater(t, g.Order, last, "group %s out of order", g.Code)
		last = g.Order
	}
}
