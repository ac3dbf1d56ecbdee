package browser

import (
	"context"
	"time"
)

// Handle identifies one browsing context (tab) within a Session.
type Handle int

// Session is the browsing capability consumed by the crawl engine: one
// automated browser with one or more contexts, exactly one of which is
// current at any time. Callers that borrow a Session for the span of one
// call must leave focus on the context they found it on, or report a
// SessionFault if they cannot.
type Session interface {
	// Navigate loads url in the current context.
	Navigate(ctx context.Context, url string) error
	// OpenContext opens a new context on url and makes it current.
	OpenContext(ctx context.Context, url string) (Handle, error)
	// SwitchTo makes h the current context.
	SwitchTo(h Handle) error
	// CloseContext discards h. Closing the current context leaves the
	// session unfocused until SwitchTo is called.
	CloseContext(h Handle) error
	// Current returns the handle of the current context.
	Current() Handle
	// WaitVisible blocks until selector matches a visible element in the
	// current context, or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Evaluate runs js in the current context and unmarshals the result
	// into out (pass nil to discard it).
	Evaluate(ctx context.Context, js string, out any) error
	// OuterHTML returns the current context's full document markup.
	OuterHTML(ctx context.Context) (string, error)
	// Location returns the current context's URL.
	Location(ctx context.Context) (string, error)
	// Close releases the browser and every context.
	Close()
}
