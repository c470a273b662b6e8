package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodRenderer implements the Renderer interface using rod
type RodRenderer struct {
	browser *rod.Browser
	opts    Options
	logger  *logrus.Entry
}

// NewRodRenderer connects to the remote browser described by opts
func NewRodRenderer(opts Options) (*RodRenderer, error) {
	browser, err := connectRod(opts)
	if err != nil {
		return nil, err
	}

	logger := opts.logger().WithField("backend", "rod")
	logger.WithField("remote_url", opts.RemoteURL).Info("connected to remote browser")

	return &RodRenderer{
		browser: browser,
		opts:    opts,
		logger:  logger,
	}, nil
}

func connectRod(opts Options) (*rod.Browser, error) {
	if strings.HasPrefix(opts.RemoteURL, "http://") || strings.HasPrefix(opts.RemoteURL, "https://") {
		// Plain DevTools endpoint: the browser is already running, so only
		// page level settings can be applied.
		wsURL, err := launcher.ResolveURL(opts.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve browser endpoint: %w", err)
		}
		browser := rod.New().ControlURL(wsURL)
		if err := browser.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to browser: %w", err)
		}
		return browser, nil
	}

	// rod manager: the browser is launched remotely with our flags
	l, err := launcher.NewManaged(opts.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to reach browser manager: %w", err)
	}
	l = l.Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight)).
		Set("user-agent", opts.UserAgent).
		NoSandbox(true).
		Set("disable-extensions").
		Set("disable-gpu").
		Set("incognito").
		Set("ignore-certificate-errors")

	client, err := l.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to launch remote browser: %w", err)
	}

	browser := rod.New().Client(client)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return browser, nil
}

// Close closes the browser
func (rr *RodRenderer) Close() error {
	if rr.browser != nil {
		return rr.browser.Close()
	}
	return nil
}

// Render implements the Renderer interface
func (rr *RodRenderer) Render(url string) (string, error) {
	page, err := rr.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if rr.opts.PageTimeout > 0 {
		page = page.Timeout(rr.opts.PageTimeout)
	}

	if _, err := page.EvalOnNewDocument(hideWebdriverScript); err != nil {
		return "", fmt.Errorf("failed to install page script: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             rr.opts.WindowWidth,
		Height:            rr.opts.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return "", fmt.Errorf("failed to set viewport: %w", err)
	}
	if rr.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rr.opts.UserAgent}); err != nil {
			return "", fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		rr.logger.WithField("url", url).WithError(err).Warn("page did not finish loading, continuing anyway")
	}

	// Give JavaScript time to render
	time.Sleep(rr.opts.WaitTime)

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	rr.logger.WithFields(logrus.Fields{"url": url, "bytes": len(html)}).Info("rendered page")
	return html, nil
}
