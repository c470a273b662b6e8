// Package browser renders JavaScript-driven pages through a remote browser.
package browser

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// hideWebdriverScript runs before any page script. It covers connections
// where the AutomationControlled blink feature cannot be disabled at launch,
// such as an already running DevTools endpoint.
const hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// Renderer loads a page in a real browser and returns the rendered HTML
type Renderer interface {
	Render(url string) (string, error)
	Close() error
}

// Options configures a Renderer
type Options struct {
	// RemoteURL is either a rod manager websocket (ws://host:port) or a
	// DevTools HTTP endpoint (http://host:port)
	RemoteURL    string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// WaitTime is how long a page is left to render after it loads
	WaitTime    time.Duration
	PageTimeout time.Duration
	Logger      *logrus.Entry
}

func (o Options) logger() *logrus.Entry {
	if o.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return o.Logger
}

// New connects a Renderer of the named backend
func New(backend string, opts Options) (Renderer, error) {
	switch backend {
	case "rod":
		return NewRodRenderer(opts)
	case "chromedp":
		return NewChromedpRenderer(opts)
	default:
		return nil, fmt.Errorf("unknown browser backend %q", backend)
	}
}
