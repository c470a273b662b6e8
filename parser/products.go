package parser

import (
	"strings"

	"catalog-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// ProductSelectors locate the name and price of each product card
type ProductSelectors struct {
	Card  string
	Name  string
	Price string
}

// ExtractProducts returns the name and price of every product card.
// Cards missing either field are skipped.
func ExtractProducts(doc *goquery.Document, sel ProductSelectors) []models.Product {
	products := []models.Product{}

	doc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
		name := card.Find(sel.Name).First()
		price := card.Find(sel.Price).First()
		if name.Length() == 0 || price.Length() == 0 {
			return
		}
		products = append(products, models.Product{
			Name:  strings.TrimSpace(name.Text()),
			Price: strings.TrimSpace(price.Text()),
		})
	})
	return products
}
