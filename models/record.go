package models

// Record is implemented by everything the scraper persists.
// Columns and Values must have the same length.
type Record interface {
	Columns() []string
	Values() []string
}

// LinkRecord is a single extracted URL, relative or absolute, as found in the page
type LinkRecord string

func (l LinkRecord) Columns() []string { return []string{"url"} }
func (l LinkRecord) Values() []string  { return []string{string(l)} }

// Category is an entry discovered on the category index page
type Category struct {
	URL  string `json:"url"`
	Name string `json:"category"`
}

func (c Category) Columns() []string { return []string{"url", "category"} }
func (c Category) Values() []string  { return []string{c.URL, c.Name} }

// Product is a name/price pair extracted from a category page card
type Product struct {
	Name  string `json:"Product Name"`
	Price string `json:"Price"`
}

func (p Product) Columns() []string { return []string{"Product Name", "Price"} }
func (p Product) Values() []string  { return []string{p.Name, p.Price} }

// Records converts a typed slice into the form the persisters accept
func Records[T Record](in []T) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}
