package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"catalog-scraper/browser"
	"catalog-scraper/catalog"
	"catalog-scraper/config"
	"catalog-scraper/fetcher"
	"catalog-scraper/filter"
	"catalog-scraper/models"
	"catalog-scraper/persist"
	"catalog-scraper/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	appName = "catalog-scraper"
	appSha  = "populated-at-link-time"
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := newApp(logger).Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		os.Exit(1)
	}
}

func newApp(logger *logrus.Entry) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "collect category, product and listing links from an e-commerce site"
	app.Version = appSha
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the YAML configuration file"},
		cli.StringFlag{Name: "output-dir", Usage: "directory records are written to (overrides output.dir)"},
		cli.StringFlag{Name: "format", Usage: "output format, json or csv (overrides output.format)"},
		cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
	}
	app.Commands = []cli.Command{
		{
			Name:      "categories",
			Usage:     "list the categories linked from the category index",
			ArgsUsage: "[PATH]",
			Action:    withRun(logger, runCategories),
		},
		{
			Name:      "products",
			Usage:     "collect product links from a listing page",
			ArgsUsage: "URL",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "all", Usage: "follow the pagination and collect every page"},
			},
			Action: withRun(logger, runProducts),
		},
		{
			Name:      "details",
			Usage:     "collect the card links on a product page, or on every product of a listing with --from",
			ArgsUsage: "[PATH]",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "from", Usage: "listing URL whose products are all visited, one output file per product"},
			},
			Action: withRun(logger, runDetails),
		},
		{
			Name:      "scrape",
			Usage:     "extract products from category pages (every discovered category when no path is given)",
			ArgsUsage: "[PATH...]",
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "every", Usage: "repeat the scrape at this interval until interrupted"},
			},
			Action: withRun(logger, runScrape),
		},
		{
			Name:      "render",
			Usage:     "collect product links from a page rendered in a remote browser",
			ArgsUsage: "URL",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "all", Usage: "follow the pagination and collect every rendered page"},
			},
			Action: withRun(logger, runRender),
		},
	}
	return app
}

// run carries what every command needs
type run struct {
	ctx    context.Context
	cfg    *config.Config
	logger *logrus.Entry
	sink   persist.Sink
	filter *filter.Filter
}

func withRun(logger *logrus.Entry, action func(*cli.Context, *run) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if c.GlobalBool("verbose") {
			logger.Logger.SetLevel(logrus.DebugLevel)
		}

		cfg, err := loadConfig(c, logger)
		if err != nil {
			return err
		}

		ctx, cancelFn := context.WithCancel(context.Background())
		defer cancelFn()
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case s := <-sigCh:
				logger.WithField("signal", s.String()).Info("stopping due to signal")
				cancelFn()
			case <-ctx.Done():
			}
		}()

		sink, closeSinks := buildSinks(ctx, cfg, logger)
		defer closeSinks()

		return action(c, &run{
			ctx:    ctx,
			cfg:    cfg,
			logger: logger.WithField("command", c.Command.Name),
			sink:   sink,
			filter: filter.NewFilter(cfg.Filters),
		})
	}
}

// loadConfig reads the config file, falling back to the defaults when the
// default path does not exist, and applies the global flag overrides
func loadConfig(c *cli.Context, logger *logrus.Entry) (*config.Config, error) {
	path := c.GlobalString("config")
	var cfg *config.Config
	if _, err := os.Stat(path); os.IsNotExist(err) && !c.GlobalIsSet("config") {
		logger.WithField("path", path).Debug("config file not found, using defaults")
		cfg = config.GetDefaultConfig()
	} else {
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if dir := c.GlobalString("output-dir"); dir != "" {
		cfg.Output.Dir = dir
	}
	if format := c.GlobalString("format"); format != "" {
		cfg.Output.Format = format
	}
	return cfg, cfg.Validate()
}

func (r *run) scraper(f fetcher.Fetcher) *catalog.Scraper {
	return catalog.New(r.cfg, f, catalog.Options{Logger: r.logger})
}

func (r *run) httpScraper() *catalog.Scraper {
	return r.scraper(fetcher.NewCollyFetcher(fetcher.Options{
		UserAgent:        r.cfg.Site.UserAgent,
		Headers:          r.cfg.Site.Headers,
		RequestTimeout:   r.cfg.Crawl.RequestTimeout,
		RespectRobotsTxt: r.cfg.Crawl.RespectRobotsTxt,
		Logger:           r.logger.WithField("component", "fetcher"),
	}))
}

// write hands records to the sinks. Sink failures are logged, not returned.
func (r *run) write(name string, records []models.Record) {
	if err := r.sink.Write(r.ctx, name, records); err != nil {
		r.logger.WithError(err).WithField("name", name).Error("failed to write records")
		return
	}
	r.logger.WithFields(logrus.Fields{"name": name, "records": len(records)}).Info("done")
}

func runCategories(c *cli.Context, r *run) error {
	path := r.cfg.Site.CategoryPath
	if c.NArg() > 0 {
		path = c.Args().First()
	}
	categories := r.httpScraper().CategoryURLs(path)
	r.write("categories", models.Records(categories))
	return nil
}

func runProducts(c *cli.Context, r *run) error {
	if c.NArg() == 0 {
		return fmt.Errorf("products requires a listing URL")
	}
	listingURL := c.Args().First()
	s := r.httpScraper()

	var links []models.LinkRecord
	if c.Bool("all") {
		var err error
		links, err = s.CollectProductLinks(r.ctx, listingURL)
		if err != nil {
			r.logger.WithError(err).WithField("links", len(links)).Warn("pagination stopped early")
		}
	} else {
		links = s.ProductLinks(listingURL)
	}

	r.write("product_links", models.Records(r.filter.ApplyFilters(links)))
	return nil
}

func runDetails(c *cli.Context, r *run) error {
	if from := c.String("from"); from != "" {
		details, err := r.httpScraper().CollectProductDetails(r.ctx, from)
		if err != nil {
			r.logger.WithError(err).WithField("products", len(details)).Warn("details stopped early")
		}
		for _, d := range details {
			r.write(detailName(d.Link), models.Records(r.filter.ApplyFilters(d.Links)))
		}
		return nil
	}

	if c.NArg() == 0 {
		return fmt.Errorf("details requires a product path or --from")
	}
	links := r.httpScraper().ProductDetails(c.Args().First())
	r.write("product_details", models.Records(r.filter.ApplyFilters(links)))
	return nil
}

// detailName is the output name for a product link: its path, so
// "/products/123-milk" is written to products/123-milk under the output dir
func detailName(link models.LinkRecord) string {
	u, err := url.Parse(string(link))
	if err != nil || u.Path == "" {
		return string(link)
	}
	return u.Path
}

func runScrape(c *cli.Context, r *run) error {
	s := r.httpScraper()
	args := []string(c.Args())

	job := func(ctx context.Context) error {
		paths := args
		if len(paths) == 0 {
			for _, category := range s.CategoryURLs(r.cfg.Site.CategoryPath) {
				if p := requestPath(category.URL); p != "" {
					paths = append(paths, p)
				}
			}
		}

		products, err := s.ScrapeCategories(ctx, paths)
		if err != nil {
			r.logger.WithError(err).WithField("products", len(products)).Warn("scrape stopped early")
		}
		r.write("products", models.Records(products))
		return nil
	}

	if every := c.Duration("every"); every > 0 {
		return scheduler.NewScheduler(every, nil, r.logger.WithField("component", "scheduler")).Run(r.ctx, job)
	}
	return job(r.ctx)
}

func runRender(c *cli.Context, r *run) error {
	if c.NArg() == 0 {
		return fmt.Errorf("render requires a page URL")
	}

	renderer, err := browser.New(r.cfg.Browser.Backend, browser.Options{
		RemoteURL:    r.cfg.Browser.RemoteURL,
		UserAgent:    r.cfg.Site.UserAgent,
		WindowWidth:  r.cfg.Browser.WindowWidth,
		WindowHeight: r.cfg.Browser.WindowHeight,
		WaitTime:     r.cfg.Browser.WaitTime,
		PageTimeout:  r.cfg.Browser.PageTimeout,
		Logger:       r.logger.WithField("component", "browser"),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer renderer.Close()

	s := r.scraper(browser.NewDocumentFetcher(renderer))
	var links []models.LinkRecord
	if c.Bool("all") {
		links, err = s.CollectProductLinks(r.ctx, c.Args().First())
		if err != nil {
			r.logger.WithError(err).WithField("links", len(links)).Warn("pagination stopped early")
		}
	} else {
		links = s.ProductLinks(c.Args().First())
	}
	r.write("rendered_links", models.Records(r.filter.ApplyFilters(links)))
	return nil
}

// requestPath strips scheme and host so a discovered URL can be scraped as a site path
func requestPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.RequestURI()
}
