// Package findings implements sensitive-information detection on page
// text: prompting the language model, parsing and filtering its output,
// deduplicating near-identical findings, and rejecting hallucinated ones.
package findings

// Category identifies a class of sensitive information.
type Category string

const (
	CategoryAddresses    Category = "addresses"
	CategoryDates        Category = "dates"
	CategoryEmails       Category = "emails"
	CategoryIDs          Category = "ids"
	CategoryNames        Category = "names"
	CategoryPhoneNumbers Category = "phone_numbers"
)

// Categories returns all known categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryAddresses,
		CategoryDates,
		CategoryEmails,
		CategoryIDs,
		CategoryNames,
		CategoryPhoneNumbers,
	}
}

// Known reports whether c is one of the known categories.
func Known(c Category) bool {
	switch c {
	case CategoryAddresses, CategoryDates, CategoryEmails,
		CategoryIDs, CategoryNames, CategoryPhoneNumbers:
		return true
	}
	return false
}

// descriptions distinguish each category from look-alikes. They are
// embedded verbatim into the system prompt for enabled categories only.
var descriptions = map[Category]string{
	CategoryAddresses:    "'addresses' for postal addresses (street, house number, postal code, city); not bare city or country mentions",
	CategoryDates:        "'dates' for calendar dates such as birth or invoice dates; not bare years and not times of day without a date",
	CategoryEmails:       "'emails' for e-mail addresses",
	CategoryIDs:          "'ids' for identification numbers (tax IDs, commercial register numbers, insurance, case or customer numbers)",
	CategoryNames:        "'names' for personal names; not organization, product or place names",
	CategoryPhoneNumbers: "'phone_numbers' for telephone and fax numbers",
}

// Description returns the prompt description for a category.
func Description(c Category) string {
	return descriptions[c]
}

// Finding is a detected sensitive-text span. Only text and category
// survive extraction; the model's start index and reason are dropped
// after confidence filtering.
type Finding struct {
	Text string   `json:"text"`
	Type Category `json:"type"`
}
