package scraper

import (
	"context"
	"log/slog"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/models"
	"github.com/gfribergo93/nexxt-scraper/retry"
)

// Collector opens one listing in its own browsing context, extracts the
// record and restores focus to the originating context. The borrowed session
// is always left focused where it was found, or a SessionFault is reported.
type Collector struct {
	cfg       config.Config
	extractor *FieldExtractor
	logger    *slog.Logger
}

func NewCollector(cfg config.Config, extractor *FieldExtractor, logger *slog.Logger) *Collector {
	return &Collector{cfg: cfg, extractor: extractor, logger: logger}
}

// Collect returns the record for url. Transient faults while opening the
// listing are retried; once the retry budget is exhausted the listing
// degrades to an all-ERROR record and the run continues. The returned error
// is non-nil only for a SessionFault, which the caller must answer with a
// full session re-establishment.
func (c *Collector) Collect(ctx context.Context, sess browser.Session, url string) (models.ListingRecord, error) {
	var rec models.ListingRecord

	err := retry.Do(ctx, c.logger, "collect listing", c.cfg.MaxAttempts, c.cfg.BackoffBase, func() error {
		var visitErr error
		rec, visitErr = c.visit(ctx, sess, url)
		return visitErr
	})
	if err == nil {
		return rec, nil
	}
	if browser.IsSessionFault(err) {
		return models.ErrorRecord(url), err
	}
	c.logger.Error("listing abandoned after retries", "url", url, "error", err)
	return models.ErrorRecord(url), nil
}

// visit performs one attempt: open a context on url, dismiss the consent
// interstitial if present, extract, then close the context and refocus the
// originating one on every exit path.
func (c *Collector) visit(ctx context.Context, sess browser.Session, url string) (models.ListingRecord, error) {
	origin := sess.Current()

	h, err := sess.OpenContext(ctx, url)
	if err != nil {
		return models.ListingRecord{}, err
	}

	DismissConsent(ctx, sess, c.logger)
	rec := c.extractor.Extract(ctx, sess, url)

	if err := sess.CloseContext(h); err != nil {
		c.logger.Warn("could not close listing context", "url", url, "error", err)
	}
	if err := sess.SwitchTo(origin); err != nil {
		return rec, &browser.SessionFault{Op: "restore results context", Err: err}
	}
	return rec, nil
}

// DismissConsent clicks away a consent interstitial when one is showing.
// Failures are harmless: either there was no banner or the page is already
// usable.
func DismissConsent(ctx context.Context, sess browser.Session, logger *slog.Logger) {
	var clicked bool
	if err := sess.Evaluate(ctx, dismissConsentJS, &clicked); err != nil {
		logger.Debug("consent dismissal failed", "error", err)
		return
	}
	if clicked {
		logger.Debug("consent interstitial dismissed")
	}
}
