package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Rendered is a page as seen by a real browser.
type Rendered struct {
	HTML     string
	Title    string
	FinalURL string
}

// Renderer loads a page in a browser. Browser is the production implementation.
type Renderer interface {
	Render(ctx context.Context, url, userAgent string, opts Options) (*Rendered, error)
}

// localeJS aligns the page's reported languages and permissions with the
// Accept-Language header. It runs as soon as each document is created.
const localeJS = `(() => {
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  const query = window.navigator.permissions && window.navigator.permissions.query;
  if (query) {
    window.navigator.permissions.query = (p) =>
      p && p.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : query(p);
  }
})();`

// documentScripts are installed on every new document, in order. stealth.JS
// carries the headless fingerprint evasions (navigator.webdriver, plugins,
// window.chrome and friends).
var documentScripts = []string{stealth.JS, localeJS}

// Browser renders pages with one shared headless Chrome per process. The
// instance is launched on first use and relaunched if it has disconnected.
// Pages are independent per call and always closed.
type Browser struct {
	inst *lazy[*rod.Browser]
}

var _ Renderer = (*Browser)(nil)

// NewBrowser creates a Browser. Nothing is launched until the first Render.
func NewBrowser(headless bool) *Browser {
	return &Browser{inst: &lazy[*rod.Browser]{
		create: func(context.Context) (*rod.Browser, error) {
			u, err := launcher.New().Headless(headless).Launch()
			if err != nil {
				return nil, fmt.Errorf("launch chrome: %w", err)
			}
			br := rod.New().ControlURL(u)
			if err := br.Connect(); err != nil {
				return nil, fmt.Errorf("connect to chrome: %w", err)
			}
			slog.Info("browser launched", "headless", headless)
			return br, nil
		},
		alive: func(br *rod.Browser) bool {
			if _, err := br.Version(); err != nil {
				slog.Warn("stale browser connection detected, relaunching", "error", err)
				return false
			}
			return true
		},
		release: func(br *rod.Browser) { _ = br.Close() },
	}}
}

// Render navigates a fresh page to url and returns its HTML once the wait
// condition in opts is met.
func (b *Browser) Render(ctx context.Context, url, userAgent string, opts Options) (*Rendered, error) {
	br, err := b.inst.Get(ctx)
	if err != nil {
		return nil, err
	}

	page, err := br.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.inst.invalidate(br)
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	timeout := opts.BrowserTimeout
	if timeout <= 0 {
		timeout = defaultBrowserTimeout
	}
	p := page.Context(ctx).Timeout(timeout)

	for _, js := range documentScripts {
		if _, err := p.EvalOnNewDocument(js); err != nil {
			return nil, fmt.Errorf("inject stealth script: %w", err)
		}
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	var waitIdle func()
	if opts.WaitSelector == "" {
		waitIdle = p.WaitRequestIdle(time.Second, nil, nil, nil)
	}
	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if opts.WaitSelector != "" {
		if _, err := p.Element(opts.WaitSelector); err != nil {
			return nil, fmt.Errorf("wait for %q: %w", opts.WaitSelector, err)
		}
	} else {
		if err := p.WaitLoad(); err != nil {
			return nil, fmt.Errorf("wait load: %w", err)
		}
		waitIdle()
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	out := &Rendered{HTML: html, FinalURL: url}
	if info, err := p.Info(); err == nil {
		out.Title = info.Title
		out.FinalURL = info.URL
	}
	return out, nil
}

// Close shuts down the shared browser if it was launched.
func (b *Browser) Close() {
	b.inst.Close()
}
