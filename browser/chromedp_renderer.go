package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromedpRenderer implements the Renderer interface using chromedp against
// an already running browser's DevTools endpoint
type ChromedpRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	opts        Options
	logger      *logrus.Entry
}

// NewChromedpRenderer prepares an allocator for the remote browser. The
// connection itself is made on the first Render.
func NewChromedpRenderer(opts Options) (*ChromedpRenderer, error) {
	if opts.RemoteURL == "" {
		return nil, fmt.Errorf("remote browser url must be set")
	}
	allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)

	return &ChromedpRenderer{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		opts:        opts,
		logger:      opts.logger().WithField("backend", "chromedp"),
	}, nil
}

// Close releases the allocator
func (cr *ChromedpRenderer) Close() error {
	cr.allocCancel()
	return nil
}

// Render implements the Renderer interface
func (cr *ChromedpRenderer) Render(url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(cr.allocCtx)
	defer cancelTab()

	ctx := tabCtx
	if cr.opts.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(tabCtx, cr.opts.PageTimeout)
		defer cancel()
	}

	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverScript).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(int64(cr.opts.WindowWidth), int64(cr.opts.WindowHeight)),
	}
	if cr.opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(cr.opts.UserAgent))
	}

	var html string
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.Sleep(cr.opts.WaitTime),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}

	cr.logger.WithFields(logrus.Fields{"url": url, "bytes": len(html)}).Info("rendered page")
	return html, nil
}
