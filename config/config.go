package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent with every request unless the config overrides it
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config is the complete scraper configuration
type Config struct {
	Site      SiteConfig     `yaml:"site"`
	Selectors SelectorConfig `yaml:"selectors"`
	Crawl     CrawlConfig    `yaml:"crawl"`
	Browser   BrowserConfig  `yaml:"browser"`
	Output    OutputConfig   `yaml:"output"`
	Filters   FilterConfig   `yaml:"filters"`
	Database  DatabaseConfig `yaml:"database"`
	Sheets    SheetsConfig   `yaml:"sheets"`
	Telegram  TelegramConfig `yaml:"telegram"`
}

// SiteConfig describes the target site and the request identity
type SiteConfig struct {
	BaseURL   string            `yaml:"base_url"`
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
	// CategoryPath is the index page listing every category
	CategoryPath string `yaml:"category_path"`
	// CategoryMarker selects category anchors by href substring
	CategoryMarker string `yaml:"category_marker"`
}

// SelectorConfig holds the site-specific markup identifiers
type SelectorConfig struct {
	ListingRoot  string `yaml:"listing_root"`
	DetailRoot   string `yaml:"detail_root"`
	Card         string `yaml:"card"`
	CardAnchor   string `yaml:"card_anchor"`
	NextAnchor   string `yaml:"next_anchor"`
	Product      string `yaml:"product"`
	ProductName  string `yaml:"product_name"`
	ProductPrice string `yaml:"product_price"`
}

// CrawlConfig controls the page traversal
type CrawlConfig struct {
	PageDelay        time.Duration `yaml:"page_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MaxPages         int           `yaml:"max_pages"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
}

// BrowserConfig configures the remote browser used for rendered pages
type BrowserConfig struct {
	Backend      string        `yaml:"backend"`
	RemoteURL    string        `yaml:"remote_url"`
	WindowWidth  int           `yaml:"window_width"`
	WindowHeight int           `yaml:"window_height"`
	WaitTime     time.Duration `yaml:"wait_time"`
	PageTimeout  time.Duration `yaml:"page_timeout"`
}

// OutputConfig controls where records are written
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// FilterConfig holds link filter rules
type FilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// DatabaseConfig enables the PostgreSQL sink when URL or DATABASE_URL is set
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// SheetsConfig enables the Google Sheets sink
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url"`
	CredentialsPath string `yaml:"credentials_path"`
}

// TelegramConfig enables the completion notice
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Site.BaseURL = "https://www.instacart.com"
	cfg.Site.UserAgent = DefaultUserAgent
	cfg.Site.CategoryPath = "/categories/"
	cfg.Site.CategoryMarker = "categories"

	cfg.Selectors.ListingRoot = "div.e-10tu4d6"
	cfg.Selectors.DetailRoot = "div.e-uqsf9v"
	cfg.Selectors.Card = "div.e-174im8r"
	cfg.Selectors.CardAnchor = "a[href]"
	cfg.Selectors.NextAnchor = "a[aria-label='Next']"
	cfg.Selectors.Product = "div.product-class"
	cfg.Selectors.ProductName = "h2.product-title"
	cfg.Selectors.ProductPrice = "span.product-price"

	cfg.Crawl.PageDelay = 2 * time.Second
	cfg.Crawl.RequestTimeout = 30 * time.Second
	cfg.Crawl.MaxPages = 100

	cfg.Browser.Backend = "rod"
	cfg.Browser.RemoteURL = "ws://localhost:7317"
	cfg.Browser.WindowWidth = 1920
	cfg.Browser.WindowHeight = 1080
	cfg.Browser.WaitTime = 10 * time.Second
	cfg.Browser.PageTimeout = time.Minute

	cfg.Output.Dir = "data"
	cfg.Output.Format = "json"
	return cfg
}

// Validate checks the values other packages rely on
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must not be negative, got %d", c.Crawl.MaxPages)
	}
	if c.Crawl.PageDelay < 0 {
		return fmt.Errorf("crawl.page_delay must not be negative, got %s", c.Crawl.PageDelay)
	}
	// format names are case-insensitive, as persist.ParseFormat reads them
	switch strings.ToLower(c.Output.Format) {
	case "json", "csv":
	default:
		return fmt.Errorf("output.format must be json or csv, got %q", c.Output.Format)
	}
	switch c.Browser.Backend {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("browser.backend must be rod or chromedp, got %q", c.Browser.Backend)
	}
	return nil
}
