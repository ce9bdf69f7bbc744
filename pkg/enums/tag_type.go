package enums

import "fmt"

// TagType groups menu tags into their taxonomy.
type TagType string

const (
	TagTypeMealType    TagType = "meal_type"
	TagTypeTimeOfDay   TagType = "time_of_day"
	TagTypeTemperature TagType = "temperature"
)

var validTagTypes = []TagType{
	TagTypeMealType,
	TagTypeTimeOfDay,
	TagTypeTemperature,
}

// String implements fmt.Stringer.
func (t TagType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TagType.
func (t TagType) IsValid() bool {
	for _, candidate := range validTagTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTagType converts raw input into a TagType.
func ParseTagType(value string) (TagType, error) {
	for _, candidate := range validTagTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tag type %q", value)
}
