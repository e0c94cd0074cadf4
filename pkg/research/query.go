package research

import (
	"strings"

	"shoppinglens-be/internal/model"
)

// UnknownProductQuery is used when a seed carries no usable text.
const UnknownProductQuery = "unknown product"

// BuildQuery turns a search seed into a query string. Text printed on the
// product ranks first, then brand, category and finally the visual description.
func BuildQuery(seed model.SearchSeed) string {
	terms := make([]string, 0, len(seed.VisibleText)+3)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}

	for _, text := range seed.VisibleText {
		add(text)
	}
	add(seed.BrandHint)
	add(seed.CategoryHint)
	add(seed.VisualDescription)

	if len(terms) == 0 {
		return UnknownProductQuery
	}
	return strings.Join(terms, " ")
}
