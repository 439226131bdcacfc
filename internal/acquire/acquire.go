// Package acquire fetches external web content through an escalating chain
// of strategies: a plain request, a request with a full browser header set,
// and finally a headless browser.
package acquire

import (
	"fmt"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// Strategy names an acquisition method.
type Strategy string

// Strategies in escalation order.
const (
	StrategyPlainHTTP   Strategy = "plain_http"
	StrategyFullHeaders Strategy = "full_headers"
	StrategyBrowser     Strategy = "browser"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultBrowserTimeout = 45 * time.Second
	defaultMaxRetries     = 2
	defaultMaxTextLength  = 15000
	// minTextLength is the minimum content length to accept as a valid extraction.
	// Pages returning less than this are likely login walls, cookie walls, or empty pages.
	minTextLength = 100
	// maxBodySize is the maximum HTTP response body size (5MB).
	maxBodySize = 5 * 1024 * 1024
)

// NoRetries as Options.MaxRetries makes each HTTP strategy a single attempt.
const NoRetries = -1

// Options tune one extraction. Zero values take the engine defaults.
type Options struct {
	// WaitSelector is a CSS selector the browser strategy waits for.
	// Empty means wait for network idle.
	WaitSelector   string
	Timeout        time.Duration
	// MaxRetries is the number of retries per HTTP strategy. Zero takes the
	// default; NoRetries disables retrying.
	MaxRetries     int
	BrowserTimeout time.Duration
	MaxTextLength  int
}

func (o Options) withDefaults(d Options) Options {
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = d.MaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.BrowserTimeout <= 0 {
		o.BrowserTimeout = d.BrowserTimeout
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = d.MaxTextLength
	}
	return o
}

// Meta describes how a result was obtained. Strategy always names the
// strategy that succeeded.
type Meta struct {
	Strategy Strategy      `json:"strategy"`
	Status   int           `json:"status"`
	Elapsed  time.Duration `json:"elapsed"`
	Retries  int           `json:"retries"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Result is a successful extraction.
type Result struct {
	HTML     string `json:"-"`
	Text     string `json:"text"`
	Title    string `json:"title"`
	FinalURL string `json:"final_url"`
	Meta     Meta   `json:"meta"`
}

// Error is returned once every strategy has been exhausted.
type Error struct {
	URL      string
	Attempts int
	Status   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("acquire %s: all strategies failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{model.ErrAcquisition, e.Err}
}

// attemptError is one failed attempt. Retryable failures stay within the
// current strategy; others escalate immediately.
type attemptError struct {
	Status    int
	Retryable bool
	Err       error
}

func (e *attemptError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d: %v", e.Status, e.Err)
	}
	return e.Err.Error()
}

func (e *attemptError) Unwrap() error { return e.Err }
