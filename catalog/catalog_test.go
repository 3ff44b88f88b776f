package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookups(t *testing.T) {
	assert.True(t, IsListingCategory("restaurants"))
	assert.False(t, IsListingCategory("Restaurants"))
	assert.False(t, IsListingCategory(""))

	assert.True(t, IsPriceRange("$$$"))
	assert.False(t, IsPriceRange("$$$$$"))

	assert.True(t, IsBlogCategory("Link Building"))
	assert.False(t, IsBlogCategory("link building"))

	assert.True(t, IsListingSort(SortMostViewed))
	assert.False(t, IsListingSort("alphabetical"))
}

func TestListingCategoryLabel(t *testing.T) {
	assert.Equal(t, "Doctors & Clinics", ListingCategoryLabel("doctors-clinics"))
	assert.Equal(t, "unknown", ListingCategoryLabel("unknown"))
}
