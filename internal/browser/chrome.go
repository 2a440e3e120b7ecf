package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Chrome is a headless Chrome driven over the DevTools protocol. Queries run
// against an HTML snapshot of the live DOM taken at query time.
type Chrome struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
}

func NewChrome(opts *Options) (*Chrome, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", opts.Locale),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	// The first Run on a fresh context launches the browser process.
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	return &Chrome{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		timeout:     opts.Timeout,
		logger:      slog.Default().With("component", "browser", "engine", EngineChromedp),
	}, nil
}

func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel, timeout: c.timeout, logger: c.logger}, nil
}

func (c *Chrome) Close() error {
	c.cancelCtx()
	c.cancelAlloc()
	return nil
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	url     string
	timeout time.Duration
	logger  *slog.Logger
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Goto(ctx context.Context, url string) error {
	var location string
	if err := p.run(ctx, p.timeout, chromedp.Navigate(url), chromedp.Location(&location)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	p.url = location
	p.logger.Debug("page loaded", "url", location)
	return nil
}

func (p *chromePage) URL() string {
	return p.url
}

func (p *chromePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return waitTimeout(selector, timeout)
	}
	return fmt.Errorf("failed to wait for %s: %w", selector, err)
}

func (p *chromePage) QueryAll(selector string) ([]Element, error) {
	var html string
	if err := p.run(context.Background(), p.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to snapshot document: %w", err)
	}

	doc, err := parseDocument(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return wrapSelection(doc.Find(selector)), nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
