package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is returned by Page.WaitFor when no element matched the
// selector before the timeout elapsed.
var ErrWaitTimeout = errors.New("timed out waiting for selector")

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
	EngineHTTP       = "http"
)

// Session is a running browser that can open pages.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab positioned on at most one document at a time.
type Page interface {
	Goto(ctx context.Context, url string) error
	// URL is the address of the loaded document after redirects.
	URL() string
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(selector string) ([]Element, error)
	Close() error
}

// Element is a node of the rendered DOM.
type Element interface {
	// Text returns the visible text with surrounding whitespace removed.
	Text() (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(name string) (string, error)
	QueryAll(selector string) ([]Element, error)
}

// First returns the first element under scope matching selector.
func First(scope Element, selector string) (Element, bool, error) {
	elements, err := scope.QueryAll(selector)
	if err != nil {
		return nil, false, err
	}
	if len(elements) == 0 {
		return nil, false, nil
	}
	return elements[0], true, nil
}

// Open starts a session for the named engine.
func Open(engine string, opts *Options) (Session, error) {
	switch engine {
	case EnginePlaywright, "":
		b, err := New(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	case EngineChromedp:
		c, err := NewChrome(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case EngineHTTP:
		return NewHTTPSession(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", engine)
	}
}

func waitTimeout(selector string, timeout time.Duration) error {
	return fmt.Errorf("%w %q after %s", ErrWaitTimeout, selector, timeout)
}
