package parser

import (
	"strings"

	"catalog-scraper/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// ExtractCategories returns every anchor whose href contains marker, resolved
// against base. The name is the text of the anchor's first div, or the slug
// of the last path segment without its leading id.
func ExtractCategories(doc *goquery.Document, base, marker string) []models.Category {
	categories := []models.Category{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, marker) {
			return
		}
		abs, err := ResolveURL(base, href)
		if err != nil {
			return
		}

		name := strings.TrimSpace(a.Find("div").First().Text())
		if name == "" {
			name = nameFromSlug(href)
		}
		categories = append(categories, models.Category{URL: abs, Name: name})
	})
	return categories
}

// nameFromSlug turns "/categories/1361-household-essentials" into "Household Essentials"
func nameFromSlug(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	segments := strings.Split(href, "/")
	words := strings.Split(segments[len(segments)-1], "-")
	if len(words) < 2 {
		return ""
	}
	return titleCaser.String(strings.Join(words[1:], " "))
}
