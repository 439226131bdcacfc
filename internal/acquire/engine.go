package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	nurl "net/url"
	"time"
	"unicode/utf8"

	"github.com/yangwenmai/careerpilot/internal/backoff"
	"github.com/yangwenmai/careerpilot/internal/model"
)

// Engine runs the strategy chain. It is safe for concurrent use.
type Engine struct {
	client   *http.Client
	agents   *UserAgentPool
	renderer Renderer
	policy   backoff.Policy
	defaults Options
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the client used by the HTTP strategies.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithRenderer enables the browser strategy. Without one the chain stops
// after the HTTP strategies.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithBackoff sets the retry delay policy of the HTTP strategies.
func WithBackoff(p backoff.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithUserAgents replaces the rotation pool.
func WithUserAgents(p *UserAgentPool) Option {
	return func(e *Engine) { e.agents = p }
}

// WithDefaults sets the options applied when a call leaves a field at zero.
func WithDefaults(o Options) Option {
	return func(e *Engine) { e.defaults = o.withDefaults(e.defaults) }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		client: &http.Client{},
		agents: NewUserAgentPool(),
		policy: backoff.Default(),
		defaults: Options{
			Timeout:        defaultTimeout,
			MaxRetries:     defaultMaxRetries,
			BrowserTimeout: defaultBrowserTimeout,
			MaxTextLength:  defaultMaxTextLength,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL, escalating through the strategies until one
// yields usable text. Meta.Retries counts every failed attempt, across
// all strategies.
func (e *Engine) Extract(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	u, err := nurl.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", model.ErrInvalidInput, rawURL)
	}
	opts = opts.withDefaults(e.defaults)

	strategies := []Strategy{StrategyPlainHTTP, StrategyFullHeaders}
	if e.renderer != nil {
		strategies = append(strategies, StrategyBrowser)
	}

	start := time.Now()
	failed := 0
	var lastErr error
	lastStatus := 0
	for _, s := range strategies {
		var res *Result
		var n int
		if s == StrategyBrowser {
			res, n, err = e.tryBrowser(ctx, u, opts)
		} else {
			res, n, err = e.tryHTTP(ctx, s, u, opts)
		}
		failed += n
		if err == nil {
			res.Meta.Strategy = s
			res.Meta.Retries = failed
			res.Meta.Success = true
			res.Meta.Elapsed = time.Since(start)
			slog.Debug("acquisition succeeded", "url", rawURL, "strategy", s, "retries", failed)
			return res, nil
		}

		lastErr = err
		var ae *attemptError
		if errors.As(err, &ae) && ae.Status > 0 {
			lastStatus = ae.Status
		}
		if ctx.Err() != nil {
			break
		}
		slog.Warn("acquisition strategy failed, escalating", "url", rawURL, "strategy", s, "error", err)
	}

	return nil, &Error{URL: rawURL, Attempts: failed, Status: lastStatus, Err: lastErr}
}

// tryHTTP runs one HTTP strategy with retries. It returns the number of failed attempts.
func (e *Engine) tryHTTP(ctx context.Context, s Strategy, u *nurl.URL, opts Options) (*Result, int, error) {
	maxAttempts := opts.MaxRetries + 1
	failed := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := e.fetch(ctx, s, u, opts)
		if err == nil {
			return res, failed, nil
		}
		failed++

		if ctx.Err() != nil {
			return nil, failed, ctx.Err()
		}
		var ae *attemptError
		if errors.As(err, &ae) && !ae.Retryable {
			return nil, failed, err
		}
		if attempt == maxAttempts {
			return nil, failed, err
		}
		if err := backoff.Sleep(ctx, e.policy.Delay(attempt)); err != nil {
			return nil, failed, err
		}
	}
	return nil, failed, errors.New("no attempts made")
}

// fetch performs a single HTTP attempt under its own timeout.
func (e *Engine) fetch(ctx context.Context, s Strategy, u *nurl.URL, opts Options) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &attemptError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", e.agents.Next())
	if s == StrategyFullHeaders {
		setBrowserHeaders(req)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &attemptError{Retryable: true, Err: fmt.Errorf("fetch: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &attemptError{
			Status:    resp.StatusCode,
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("unexpected status for %s", u),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &attemptError{Status: resp.StatusCode, Retryable: true, Err: fmt.Errorf("read body: %w", err)}
	}

	final := resp.Request.URL
	res := &Result{FinalURL: final.String(), Meta: Meta{Status: resp.StatusCode}}
	if isPDF(resp.Header.Get("Content-Type"), body) {
		text, err := pdfText(body)
		if err != nil {
			return nil, &attemptError{Status: resp.StatusCode, Err: err}
		}
		res.Text = capText(text, opts.MaxTextLength)
	} else {
		res.HTML = string(body)
		res.Text, res.Title = cleanHTML(body, final, opts.MaxTextLength)
	}

	if n := utf8.RuneCountInString(res.Text); n < minTextLength {
		return nil, &attemptError{
			Status:    resp.StatusCode,
			Retryable: true,
			Err:       fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", n),
		}
	}
	return res, nil
}

// tryBrowser runs the browser strategy once.
func (e *Engine) tryBrowser(ctx context.Context, u *nurl.URL, opts Options) (*Result, int, error) {
	r, err := e.renderer.Render(ctx, u.String(), e.agents.Next(), opts)
	if err != nil {
		return nil, 1, &attemptError{Err: fmt.Errorf("browser: %w", err)}
	}

	final, err := nurl.Parse(r.FinalURL)
	if err != nil || final.Host == "" {
		final = u
	}
	text, title := cleanHTML([]byte(r.HTML), final, opts.MaxTextLength)
	if r.Title != "" {
		title = r.Title
	}
	if n := utf8.RuneCountInString(text); n < minTextLength {
		return nil, 1, &attemptError{Err: fmt.Errorf("browser: extracted content too short (%d chars)", n)}
	}
	return &Result{
		HTML:     r.HTML,
		Text:     text,
		Title:    title,
		FinalURL: final.String(),
		Meta:     Meta{Status: http.StatusOK},
	}, 0, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

func setBrowserHeaders(req *http.Request) {
	h := req.Header
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Referer", "https://www.google.com/")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Sec-Fetch-User", "?1")
}
