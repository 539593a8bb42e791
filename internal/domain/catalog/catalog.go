package catalog

import (
	"errors"
	"strings"
)

var ErrUnknownProduct = errors.New("unknown product")

// Product is the reference definition of a purchasable package.
// Prices are in kopecks.
type Product struct {
	ID           string
	Days         int
	Lessons      int
	PriceKopecks int
}

const (
	ProductMonth    = "fe88e77a-7931-410d-8a74-5b0473798c6c"
	ProductTwoWeeks = "551f676f-22e7-4c8c-ae7a-c5a8de655438"
	ProductMini     = "3ec3f495-7257-466b-a0ba-bfac669a68c8"
)

var products = map[string]Product{
	ProductMonth:    {ID: ProductMonth, Days: 30, Lessons: 30, PriceKopecks: 109000},
	ProductTwoWeeks: {ID: ProductTwoWeeks, Days: 14, Lessons: 10, PriceKopecks: 59000},
	ProductMini:     {ID: ProductMini, Days: 3, Lessons: 3, PriceKopecks: 200},
}

// Friendly short names accepted in purchase labels.
var aliases = map[string]string{
	"mini":   ProductMini,
	"2weeks": ProductTwoWeeks,
	"month":  ProductMonth,
}

// Resolve maps a product id or a known alias to its canonical definition.
func Resolve(idOrAlias string) (Product, error) {
	key := strings.TrimSpace(idOrAlias)
	if canonical, ok := aliases[strings.ToLower(key)]; ok {
		key = canonical
	}
	p, ok := products[key]
	if !ok {
		return Product{}, ErrUnknownProduct
	}
	return p, nil
}
