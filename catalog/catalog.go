package catalog

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

var ListingCategories = []Option{
	{Value: "rooms-for-rent", Label: "Rooms for Rent", Icon: "🏠"},
	{Value: "car-for-rent", Label: "Car for Rent", Icon: "🚗"},
	{Value: "restaurants", Label: "Restaurants", Icon: "🍽️"},
	{Value: "real-estate", Label: "Real Estate", Icon: "🏢"},
	{Value: "doctors-clinics", Label: "Doctors & Clinics", Icon: "🏥"},
	{Value: "services", Label: "Services", Icon: "🔧"},
	{Value: "education-centers", Label: "Education Centers", Icon: "🎓"},
	{Value: "skills-academy", Label: "Skills Academy", Icon: "📚"},
}

var PriceRanges = []Option{
	{Value: "$", Label: "$ - Budget Friendly"},
	{Value: "$$", Label: "$$ - Moderate"},
	{Value: "$$$", Label: "$$$ - Premium"},
	{Value: "$$$$", Label: "$$$$ - Luxury"},
}

var BlogCategories = []string{
	"Local SEO",
	"Google Maps Ranking",
	"Link Building",
	"Citation Building",
	"GMB Optimization",
	"SEO Strategy",
	"Case Studies",
	"SEO Tips",
	"Industry News",
}

// Sort orders accepted by the public listing query.
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortMostViewed = "most-viewed"
	SortFeatured   = "featured"
)

var ListingSorts = []string{SortNewest, SortOldest, SortMostViewed, SortFeatured}

// All is the filter value that disables a category/status filter.
const All = "all"

func IsListingCategory(value string) bool {
	return findOption(ListingCategories, value) != nil
}

func IsPriceRange(value string) bool {
	return findOption(PriceRanges, value) != nil
}

func IsBlogCategory(value string) bool {
	for _, c := range BlogCategories {
		if c == value {
			return true
		}
	}
	return false
}

func IsListingSort(value string) bool {
	for _, s := range ListingSorts {
		if s == value {
			return true
		}
	}
	return false
}

// ListingCategoryLabel returns the display label, or the raw value for unknown categories.
func ListingCategoryLabel(value string) string {
	if o := findOption(ListingCategories, value); o != nil {
		return o.Label
	}
	return value
}

func findOption(options []Option, value string) *Option {
	for i := range options {
		if options[i].Value == value {
			return &options[i]
		}
	}
	return nil
}
