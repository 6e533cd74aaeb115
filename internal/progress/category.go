package progress

import "fmt"

// Category names one of the counters held by the progress document.
type Category string

// Tracked counters.
const (
	CategoryTrauma Category = "trauma"
	CategoryUpper  Category = "upper"
	CategoryLower  Category = "lower"
)

// Categories returns every tracked counter in document order.
func Categories() []Category {
	return []Category{CategoryTrauma, CategoryUpper, CategoryLower}
}

// ParseCategory validates raw input against the fixed category set.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(raw); c {
	case CategoryTrauma, CategoryUpper, CategoryLower:
		return c, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidCategory, raw)
	}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}
