package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
)

// SubmitSearch navigates to the search entry point, dismisses the consent
// interstitial and submits the default query, leaving the session on the
// first results page.
func SubmitSearch(ctx context.Context, sess browser.Session, cfg config.Config, logger *slog.Logger) error {
	if err := sess.Navigate(ctx, cfg.SearchURL); err != nil {
		return err
	}
	DismissConsent(ctx, sess, logger)

	if cfg.SearchTerm != "" {
		var submitted bool
		if err := sess.Evaluate(ctx, submitSearchJS(cfg.SearchTerm), &submitted); err != nil {
			return err
		}
		if !submitted {
			logger.Warn("search form not found, scanning the default result view")
		}
	}

	return sess.WaitVisible(ctx, ResultListSelector, cfg.ElementWaitTimeout)
}

func submitSearchJS(term string) string {
	return fmt.Sprintf(`
(() => {
	const input = document.querySelector('%s');
	if (!input) return false;
	input.value = %q;
	const form = input.closest('form') || document.querySelector('%s');
	if (!form) return false;
	if (form.requestSubmit) form.requestSubmit(); else form.submit();
	return true;
})();
`, SearchInputSel, term, SearchFormSelector)
}
