package core

import "strings"

// Category is a canonical spending category name.
type Category string

const (
	Groceries     Category = "Groceries"
	Transport     Category = "Transport"
	DiningOut     Category = "Dining Out"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Housing       Category = "Housing"
	Healthcare    Category = "Healthcare"
	Personal      Category = "Personal"
	Education     Category = "Education"
	Travel        Category = "Travel"
	Gifts         Category = "Gifts"
	Electronics   Category = "Electronics"
	Insurance     Category = "Insurance"
	Savings       Category = "Savings"
	Others        Category = "Others"
)

// Categories lists every canonical category in display order.
var Categories = []Category{
	Groceries, Transport, DiningOut, Entertainment, Shopping, Utilities,
	Housing, Healthcare, Personal, Education, Travel, Gifts, Electronics,
	Insurance, Savings, Others,
}

// keywords are checked in order; the first substring hit wins.
// "present" has to precede "rent".
var keywords = []struct {
	word     string
	category Category
}{
	{"food", Groceries},
	{"grocery", Groceries},
	{"school", Education},
	{"bills", Utilities},
	{"transportation", Transport},
	{"flight", Travel},
	{"trip", Travel},
	{"movie", Entertainment},
	{"dining", DiningOut},
	{"restaurant", DiningOut},
	{"gift", Gifts},
	{"present", Gifts},
	{"home", Housing},
	{"rent", Housing},
	{"health", Healthcare},
	{"doctor", Healthcare},
	{"medicine", Healthcare},
	{"tools", Others},
	{"tool", Others},
	{"clothes", Shopping},
	{"clothing", Shopping},
	{"electronic", Electronics},
	{"gadget", Electronics},
	{"device", Electronics},
	{"insurance", Insurance},
	{"policy", Insurance},
	{"savings", Savings},
	{"investment", Savings},
}

func (c Category) String() string {
	return string(c)
}

// IsCanonical reports whether c is one of Categories, compared exactly.
func (c Category) IsCanonical() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// NormalizeCategory maps free text onto a canonical category.
// Exact names win, then case-insensitive names, then keyword substrings.
// Anything else becomes Others.
func NormalizeCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return Others
	}
	if c := Category(s); c.IsCanonical() {
		return c
	}
	for _, cat := range Categories {
		if strings.EqualFold(s, string(cat)) {
			return cat
		}
	}
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw.word) {
			return kw.category
		}
	}
	return Others
}
