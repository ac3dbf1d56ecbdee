package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
)

// PageWalker reads listing URLs off the current results page and advances
// through the paginated result set.
type PageWalker struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewPageWalker(cfg config.Config, logger *slog.Logger) *PageWalker {
	return &PageWalker{cfg: cfg, logger: logger}
}

// ListListingURLs collects all listing-detail hrefs from the currently
// loaded results page. An empty slice is not an error; it just means the
// page has no listings.
func (w *PageWalker) ListListingURLs(ctx context.Context, sess browser.Session) ([]string, error) {
	html, err := sess.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	return ListingURLsFromDocument(doc, w.cfg.BaseURL), nil
}

// ListingURLsFromDocument extracts detail links from a parsed results page:
// anchors under the result list whose href carries the detail marker and an
// adId parameter, deduplicated in first-seen order. When the structural
// query finds nothing it falls back to scanning every anchor in the
// document.
func ListingURLsFromDocument(doc *goquery.Document, baseURL string) []string {
	urls := collectDetailLinks(doc.Find(ResultListSelector).Find("a[href]"), baseURL)
	if len(urls) == 0 {
		urls = collectDetailLinks(doc.Find("a[href]"), baseURL)
	}
	return urls
}

func collectDetailLinks(anchors *goquery.Selection, baseURL string) []string {
	seen := make(map[string]struct{})
	var urls []string
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !isDetailHref(href) {
			return
		}
		resolved := resolveHref(baseURL, href)
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		urls = append(urls, resolved)
	})
	return urls
}

func isDetailHref(href string) bool {
	return strings.Contains(href, DetailLinkMarker) && strings.Contains(href, AdIDParam)
}

func resolveHref(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// AdvanceToNextPage tries the known pagination affordances in priority
// order: a generic "next" control, a direct link to page currentPage+1, and
// finally any visible element labelled with that number. It returns false
// when none of them exists — the directory has no further pages. Results may
// render asynchronously, so every successful click is followed by a pacing
// delay before the settle wait.
func (w *PageWalker) AdvanceToNextPage(ctx context.Context, sess browser.Session, currentPage int) (bool, error) {
	next := currentPage + 1
	attempts := []struct {
		name string
		js   string
	}{
		{"next affordance", clickNextAffordanceJS},
		{"pagination link", clickPageLinkJS(next)},
		{"numbered element", clickPageTextJS(next)},
	}

	for _, attempt := range attempts {
		var clicked bool
		if err := sess.Evaluate(ctx, attempt.js, &clicked); err != nil {
			return false, err
		}
		if !clicked {
			continue
		}
		w.logger.Debug("advanced via pagination affordance",
			"kind", attempt.name, "page", next)
		time.Sleep(w.cfg.RandomDelay())
		if err := sess.WaitVisible(ctx, ResultListSelector, w.cfg.ElementWaitTimeout); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// clickPageLinkJS targets a direct page-number link under the pagination
// container shapes the directory is known to render.
func clickPageLinkJS(page int) string {
	return fmt.Sprintf(`
(() => {
	const containers = document.querySelectorAll(
		'.pagination, ul.pagination, nav.pagination, .pager, [class*="paginierung"]'
	);
	for (const c of containers) {
		for (const a of c.querySelectorAll('a')) {
			if (a.textContent.trim() === '%d' && a.offsetParent !== null) {
				a.click();
				return true;
			}
		}
	}
	return false;
})();
`, page)
}

// clickPageTextJS is the last resort: any visible, enabled element whose
// text is exactly the wanted page number.
func clickPageTextJS(page int) string {
	return fmt.Sprintf(`
(() => {
	for (const el of document.querySelectorAll('a, button')) {
		if (el.textContent.trim() !== '%d') continue;
		if (el.offsetParent === null || el.disabled) continue;
		el.click();
		return true;
	}
	return false;
})();
`, page)
}
