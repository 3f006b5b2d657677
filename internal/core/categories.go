package core

// Category is a static configuration entry: a fixed label with a fixed
// display color for the donut chart. The lists below are never mutated;
// aggregation builds fresh accumulators per call.
type Category struct {
	Label string
	Color string
}

var incomeCategories = []Category{
	{Label: "Salary", Color: "#4ADE80"},
	{Label: "Business", Color: "#22D3EE"},
	{Label: "Investments", Color: "#A78BFA"},
	{Label: "Gifts", Color: "#F472B6"},
	{Label: "Other", Color: "#94A3B8"},
}

var expenseCategories = []Category{
	{Label: "Food", Color: "#DD686A"},
	{Label: "Transportation", Color: "#FB923C"},
	{Label: "Housing", Color: "#FACC15"},
	{Label: "Utilities", Color: "#38BDF8"},
	{Label: "Entertainment", Color: "#C084FC"},
	{Label: "Health", Color: "#34D399"},
	{Label: "Shopping", Color: "#F9A8D4"},
	{Label: "Miscellaneous", Color: "#94A3B8"},
}

// MonthNames is the 12-entry lookup table used for series labels.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// CategoriesFor returns a copy of the fixed category list for the type,
// so callers can never contaminate the shared configuration.
func CategoriesFor(t TransactionType) []Category {
	var src []Category
	switch t {
	case Income:
		src = incomeCategories
	case Expense:
		src = expenseCategories
	default:
		return nil
	}
	out := make([]Category, len(src))
	copy(out, src)
	return out
}

// DefaultCategory returns the first category of the type, used as the
// form reset default.
func DefaultCategory(t TransactionType) string {
	cats := CategoriesFor(t)
	if len(cats) == 0 {
		return ""
	}
	return cats[0].Label
}

// ValidCategory reports whether label belongs to the type's fixed set.
func ValidCategory(t TransactionType, label string) bool {
	for _, c := range CategoriesFor(t) {
		if c.Label == label {
			return true
		}
	}
	return false
}
