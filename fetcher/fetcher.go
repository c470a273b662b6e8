package fetcher

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

// ErrFetch is wrapped by every error a Fetcher returns
var ErrFetch = errors.New("fetch failed")

// Fetcher defines the contract for page fetching implementations
type Fetcher interface {
	// Fetch retrieves the page at url and returns it parsed.
	// A single attempt is made; any non-200 response is an error.
	Fetch(url string) (*goquery.Document, error)
}

// StatusError reports a response with a status other than 200
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets errors.Is match ErrFetch
func (e *StatusError) Unwrap() error { return ErrFetch }
