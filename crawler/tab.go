package crawler

import "context"

// Tab is the slice of browser control the crawl needs. Lookups never block
// waiting for an element to appear: absence is reported, not awaited.
type Tab interface {
	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error

	// WaitRender waits according to the configured page-load strategy.
	WaitRender(ctx context.Context) error

	// OuterHTMLs returns the outer HTML of every element matching selector,
	// in document order. No match yields an empty slice.
	OuterHTMLs(ctx context.Context, selector string) ([]string, error)

	// OuterHTML returns the outer HTML of the first element matching
	// selector and whether one was found.
	OuterHTML(ctx context.Context, selector string) (string, bool, error)

	// ClickLink clicks the element matching target inside container whose
	// href attribute equals href. A link no longer rendered is an error.
	ClickLink(ctx context.Context, container, target, href string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// ScrollToBottom scrolls the document to its end.
	ScrollToBottom(ctx context.Context) error
}
