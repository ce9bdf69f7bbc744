package catalog

import "github.com/smartcanteen/canteen-backend/pkg/enums"

// DefaultTag is one entry of the built-in tag vocabulary.
type DefaultTag struct {
	Name        string
	Type        enums.TagType
	Description string
}

// DefaultTags is the vocabulary installed by SeedDefaultTags.
var DefaultTags = []DefaultTag{
	{Name: "Main Course", Type: enums.TagTypeMealType, Description: "Primary dishes like rice, pasta, burgers"},
	{Name: "Appetizer", Type: enums.TagTypeMealType, Description: "Starters like salads, soups, spring rolls"},
	{Name: "Dessert", Type: enums.TagTypeMealType, Description: "Sweet endings like cakes, ice cream, pudding"},
	{Name: "Beverage", Type: enums.TagTypeMealType, Description: "Drinks like juice, soda, coffee, tea"},
	{Name: "Snack", Type: enums.TagTypeMealType, Description: "Light bites like chips, sandwiches, wraps"},

	{Name: "Breakfast", Type: enums.TagTypeTimeOfDay, Description: "Morning meals (7AM - 11AM)"},
	{Name: "Lunch", Type: enums.TagTypeTimeOfDay, Description: "Midday meals (11AM - 3PM)"},
	{Name: "Dinner", Type: enums.TagTypeTimeOfDay, Description: "Evening meals (5PM - 9PM)"},
	{Name: "All-Day", Type: enums.TagTypeTimeOfDay, Description: "Available throughout the day"},

	{Name: "Hot", Type: enums.TagTypeTemperature, Description: "Served hot or warm"},
	{Name: "Cold", Type: enums.TagTypeTemperature, Description: "Served cold or chilled"},
	{Name: "Frozen", Type: enums.TagTypeTemperature, Description: "Frozen items like ice cream"},
}
