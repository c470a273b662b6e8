package paginator_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog-scraper/fetcher"
	"catalog-scraper/models"
	"catalog-scraper/paginator"
	"catalog-scraper/parser"

	"github.com/google/go-cmp/cmp"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// recordingClock fires every After immediately and remembers the requested durations
type recordingClock struct {
	clock.Clock
	pauses []time.Duration
}

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.pauses = append(c.pauses, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// listingServer serves /page/1../page/N with k cards each. next maps a page
// number to the href of its next anchor; pages missing from next have none.
func listingServer(t *testing.T, k int, next map[int]string, failing map[int]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page/{n}", func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.PathValue("n"), "%d", &n)
		if status, ok := failing[n]; ok {
			http.Error(w, http.StatusText(status), status)
			return
		}
		fmt.Fprint(w, `<html><body><div class="e-10tu4d6">`)
		for i := 0; i < k; i++ {
			fmt.Fprintf(w, `<div class="e-174im8r"><a href="/products/%d-%d">P</a></div>`, n, i)
		}
		fmt.Fprint(w, `</div>`)
		if href, ok := next[n]; ok {
			fmt.Fprintf(w, `<a aria-label="Next" href="%s">Next</a>`, href)
		}
		fmt.Fprint(w, `</body></html>`)
	})
	return httptest.NewServer(mux)
}

func newPaginator(baseURL string, cfg paginator.Config) *paginator.Paginator {
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)
	f := fetcher.NewCollyFetcher(fetcher.Options{UserAgent: "test", Logger: entry})
	e := parser.NewExtractor(parser.CSSStrategy{
		RootSelector:   "div.e-10tu4d6",
		CardSelector:   "div.e-174im8r",
		AnchorSelector: "a[href]",
		NextSelector:   "a[aria-label='Next']",
	}, entry)
	cfg.BaseURL = baseURL
	cfg.Logger = entry
	return paginator.New(f, e, cfg)
}

func expectedLinks(pages []int, k int) []models.LinkRecord {
	links := []models.LinkRecord{}
	for _, n := range pages {
		for i := 0; i < k; i++ {
			links = append(links, models.LinkRecord(fmt.Sprintf("/products/%d-%d", n, i)))
		}
	}
	return links
}

func TestCollect(t *testing.T) {
	const k = 4

	t.Run("follows a three page chain in visit order", func(t *testing.T) {
		srv := listingServer(t, k, map[int]string{1: "/page/2", 2: "/page/3"}, nil)
		defer srv.Close()

		clk := &recordingClock{}
		p := newPaginator(srv.URL, paginator.Config{Delay: 2 * time.Second, Clock: clk})
		got, err := p.Collect(context.Background(), srv.URL+"/page/1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff(expectedLinks([]int{1, 2, 3}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]time.Duration{2 * time.Second, 2 * time.Second}, clk.pauses); diff != "" {
			t.Errorf("pauses mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("absolute next links are followed", func(t *testing.T) {
		srv := listingServer(t, k, nil, nil)
		defer srv.Close()
		chained := listingServer(t, k, map[int]string{1: srv.URL + "/page/2"}, nil)
		defer chained.Close()

		p := newPaginator(chained.URL, paginator.Config{})
		got, err := p.Collect(context.Background(), chained.URL+"/page/1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(expectedLinks([]int{1, 2}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("first fetch failure yields no links", func(t *testing.T) {
		srv := listingServer(t, k, map[int]string{1: "/page/2"}, map[int]int{1: http.StatusServiceUnavailable})
		defer srv.Close()

		p := newPaginator(srv.URL, paginator.Config{})
		got, err := p.Collect(context.Background(), srv.URL+"/page/1")

		if !errors.Is(err, fetcher.ErrFetch) {
			t.Errorf("error = %v, want ErrFetch", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d links, want 0", len(got))
		}
	})

	t.Run("failure mid chain keeps the links gathered so far", func(t *testing.T) {
		srv := listingServer(t, k, map[int]string{1: "/page/2", 2: "/page/3"}, map[int]int{3: http.StatusNotFound})
		defer srv.Close()

		p := newPaginator(srv.URL, paginator.Config{})
		got, err := p.Collect(context.Background(), srv.URL+"/page/1")

		var statusErr *fetcher.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("error = %v, want 404 StatusError", err)
		}
		if diff := cmp.Diff(expectedLinks([]int{1, 2}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("a cyclic chain terminates", func(t *testing.T) {
		srv := listingServer(t, k, map[int]string{1: "/page/2", 2: "/page/1"}, nil)
		defer srv.Close()

		p := newPaginator(srv.URL, paginator.Config{})
		got, err := p.Collect(context.Background(), srv.URL+"/page/1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(expectedLinks([]int{1, 2}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("max pages bounds the crawl", func(t *testing.T) {
		next := map[int]string{}
		for i := 1; i < 10; i++ {
			next[i] = fmt.Sprintf("/page/%d", i+1)
		}
		srv := listingServer(t, k, next, nil)
		defer srv.Close()

		p := newPaginator(srv.URL, paginator.Config{MaxPages: 2})
		got, err := p.Collect(context.Background(), srv.URL+"/page/1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(expectedLinks([]int{1, 2}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("a page without the root container still advances", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body><a aria-label="Next" href="/full">Next</a></body></html>`)
		})
		mux.HandleFunc("/full", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<div class="e-10tu4d6"><div class="e-174im8r"><a href="/products/1">P</a></div></div>`)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		p := newPaginator(srv.URL, paginator.Config{})
		got, err := p.Collect(context.Background(), srv.URL+"/empty")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]models.LinkRecord{"/products/1"}, got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("a cancelled context stops before the next page", func(t *testing.T) {
		srv := listingServer(t, k, map[int]string{1: "/page/2"}, nil)
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := newPaginator(srv.URL, paginator.Config{})
		got, err := p.Collect(ctx, srv.URL+"/page/1")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if diff := cmp.Diff(expectedLinks([]int{1}, k), got); diff != "" {
			t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
		}
	})
}
