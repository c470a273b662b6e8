package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Options configures a CollyFetcher
type Options struct {
	UserAgent        string
	Headers          map[string]string
	RequestTimeout   time.Duration
	RespectRobotsTxt bool
	Logger           *logrus.Entry
}

// CollyFetcher implements the Fetcher interface using colly
type CollyFetcher struct {
	collector *colly.Collector
	headers   map[string]string
	logger    *logrus.Entry
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(opts Options) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
	)
	// Pagination may legitimately return to a page, and no caching is wanted
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !opts.RespectRobotsTxt
	if opts.RequestTimeout > 0 {
		c.SetRequestTimeout(opts.RequestTimeout)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &CollyFetcher{
		collector: c,
		headers:   opts.Headers,
		logger:    logger,
	}
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(url string) (*goquery.Document, error) {
	// Clone keeps the configuration but starts with no callbacks, so handlers
	// registered by earlier calls never fire again.
	c := cf.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		for k, v := range cf.headers {
			r.Headers.Set(k, v)
		}
	})

	var (
		doc      *goquery.Document
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			fetchErr = &StatusError{URL: url, StatusCode: r.StatusCode}
			return
		}
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fetchErr = fmt.Errorf("%w: %s: parse html: %v", ErrFetch, url, err)
			return
		}
		d.Url = r.Request.URL
		doc = d
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &StatusError{URL: url, StatusCode: r.StatusCode}
			return
		}
		fetchErr = fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	c.Wait()

	if fetchErr != nil {
		cf.logger.WithField("url", url).WithError(fetchErr).Warn("failed to fetch page")
		return nil, fetchErr
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: empty response", ErrFetch, url)
	}
	return doc, nil
}
