package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser is a headless Chromium driven through Playwright.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o *Options) withDefaults() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}

	out := *o
	if out.Timeout <= 0 {
		out.Timeout = d.Timeout
	}
	if out.UserAgent == "" {
		out.UserAgent = d.UserAgent
	}
	if out.ViewportWidth <= 0 || out.ViewportHeight <= 0 {
		out.ViewportWidth, out.ViewportHeight = d.ViewportWidth, d.ViewportHeight
	}
	if out.AcceptLanguage == "" {
		out.AcceptLanguage = d.AcceptLanguage
	}
	if out.TimezoneID == "" {
		out.TimezoneID = d.TimezoneID
	}
	if out.Locale == "" {
		out.Locale = d.Locale
	}
	return &out
}

func New(opts *Options) (*Browser, error) {
	opts = opts.withDefaults()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-gpu",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": opts.AcceptLanguage,
		},
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		context: bctx,
		timeout: opts.Timeout,
		logger:  slog.Default().With("component", "browser", "engine", EnginePlaywright),
	}, nil
}

func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))

	return &playwrightPage{page: page, timeout: b.timeout, logger: b.logger}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

type playwrightPage struct {
	page    playwright.Page
	timeout time.Duration
	logger  *slog.Logger
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	p.logger.Debug("page loaded", "url", p.page.URL())
	return nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return waitTimeout(selector, timeout)
	}
	if err != nil {
		return fmt.Errorf("failed to wait for %s: %w", selector, err)
	}

	return nil
}

func (p *playwrightPage) QueryAll(selector string) ([]Element, error) {
	return locateAll(p.page.Locator(selector), p.timeout)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type locatorElement struct {
	loc     playwright.Locator
	timeout time.Duration
}

func (e locatorElement) Text() (string, error) {
	text, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e locatorElement) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
}

func (e locatorElement) QueryAll(selector string) ([]Element, error) {
	return locateAll(e.loc.Locator(selector), e.timeout)
}

func locateAll(loc playwright.Locator, timeout time.Duration) ([]Element, error) {
	matches, err := loc.All()
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}

	elements := make([]Element, len(matches))
	for i, m := range matches {
		elements[i] = locatorElement{loc: m, timeout: timeout}
	}
	return elements, nil
}
