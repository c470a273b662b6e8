package filter

import (
	"strings"

	"catalog-scraper/config"
	"catalog-scraper/models"
)

// Filter applies include/exclude rules to links
type Filter struct {
	cfg config.FilterConfig
}

// NewFilter creates a new Filter instance
func NewFilter(cfg config.FilterConfig) *Filter {
	return &Filter{
		cfg: cfg,
	}
}

// ApplyFilters returns the links that pass the rules, in their original order
func (f *Filter) ApplyFilters(links []models.LinkRecord) []models.LinkRecord {
	filtered := []models.LinkRecord{}

	for _, link := range links {
		if f.matches(string(link)) {
			filtered = append(filtered, link)
		}
	}

	return filtered
}

// matches checks a link against the include and exclude rules.
// No include rules means every link is included.
func (f *Filter) matches(link string) bool {
	for _, ex := range f.cfg.Exclude {
		if strings.Contains(link, ex) {
			return false
		}
	}

	if len(f.cfg.Include) == 0 {
		return true
	}
	for _, in := range f.cfg.Include {
		if strings.Contains(link, in) {
			return true
		}
	}
	return false
}
