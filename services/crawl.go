package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/models"
	"github.com/gfribergo93/nexxt-scraper/retry"
	"github.com/gfribergo93/nexxt-scraper/scraper"
	"github.com/gfribergo93/nexxt-scraper/storage"
)

// RunContext carries the per-run collaborators that used to live in module
// globals: the logger, the run identity and the output location.
type RunContext struct {
	Logger    *slog.Logger
	RunID     string
	OutDir    string
	StartedAt time.Time
}

// SessionFactory acquires a fresh browsing session.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// CrawlSession drives the whole run: acquire a browsing session, submit the
// search, walk result pages, collect listings, stop once a listing is older
// than the recency threshold, and flush checkpointed output on every exit
// path. It is the single owner of the crawl state and the session handle.
type CrawlSession struct {
	cfg        config.Config
	run        RunContext
	newSession SessionFactory
	sink       storage.Sink
	walker     *scraper.PageWalker
	collector  *scraper.Collector
	state      *models.CrawlState
	sess       browser.Session

	// Now is the clock for the recency cutoff; tests substitute it.
	Now func() time.Time
}

func NewCrawlSession(cfg config.Config, run RunContext, factory SessionFactory, sink storage.Sink) *CrawlSession {
	extractor := scraper.NewFieldExtractor(cfg, run.Logger)
	return &CrawlSession{
		cfg:        cfg,
		run:        run,
		newSession: factory,
		sink:       sink,
		walker:     scraper.NewPageWalker(cfg, run.Logger),
		collector:  scraper.NewCollector(cfg, extractor, run.Logger),
		state:      models.NewCrawlState(),
		Now:        time.Now,
	}
}

// State exposes the run state for inspection after Run returns.
func (c *CrawlSession) State() *models.CrawlState { return c.state }

// Run executes the crawl to completion. The returned records are whatever
// was accumulated, even when err is non-nil: no failure path discards
// collected data.
func (c *CrawlSession) Run(ctx context.Context) ([]models.ListingRecord, error) {
	logger := c.run.Logger
	defer func() {
		if c.sess != nil {
			c.sess.Close()
		}
	}()

	if err := c.establishSession(ctx); err != nil {
		c.flush(true)
		return c.state.Records, fmt.Errorf("acquire browsing session: %w", err)
	}
	if err := c.submitSearch(ctx); err != nil {
		c.flush(true)
		return c.state.Records, fmt.Errorf("submit search: %w", err)
	}

	var abortErr error

scan:
	for {
		logger.Info("scanning results page",
			"page", c.state.Page, "records", len(c.state.Records))

		if err := c.sink.WriteCheckpoint(c.state.Records); err != nil {
			logger.Warn("checkpoint write failed", "page", c.state.Page, "error", err)
		}

		urls, err := c.listURLs(ctx)
		if err != nil {
			if browser.IsSessionFault(err) {
				if rerr := c.recoverSession(ctx); rerr == nil {
					urls, err = c.listURLs(ctx)
				}
			}
			if err != nil {
				abortErr = fmt.Errorf("list listing urls on page %d: %w", c.state.Page, err)
				break
			}
		}
		logger.Info("listings discovered", "page", c.state.Page, "count", len(urls))

		for _, u := range urls {
			rec, cerr := c.collector.Collect(ctx, c.sess, u)
			if cerr != nil {
				logger.Warn("session fault while collecting listing", "url", u, "error", cerr)
				if rerr := c.recoverSession(ctx); rerr != nil {
					logger.Error("session recovery failed", "error", rerr)
					c.state.MarkOldFound() // sentinel forcing termination
					abortErr = fmt.Errorf("recover browsing session: %w", rerr)
					break scan
				}
				// The faulted listing was never appended; retry it once on
				// the fresh session before moving on.
				rec, cerr = c.collector.Collect(ctx, c.sess, u)
				if cerr != nil {
					logger.Error("session faulted again on the same listing", "url", u, "error", cerr)
					c.state.MarkOldFound()
					abortErr = fmt.Errorf("collect %s after recovery: %w", u, cerr)
					break scan
				}
			}

			c.state.Append(rec)
			logger.Info("listing collected",
				"id", rec.ID, "date", rec.Date, "total", len(c.state.Records))

			if c.olderThanCutoff(rec) {
				logger.Info("listing older than recency threshold, stopping",
					"id", rec.ID, "date", rec.Date, "threshold_days", c.cfg.RecencyDays)
				c.state.MarkOldFound()
				break scan
			}
			time.Sleep(c.cfg.RandomDelay())
		}

		if c.cfg.MaxPages > 0 && c.state.Page >= c.cfg.MaxPages {
			logger.Info("page cap reached", "pages", c.state.Page)
			break
		}

		advanced, err := c.walker.AdvanceToNextPage(ctx, c.sess, c.state.Page)
		if err != nil {
			logger.Warn("pagination failed, treating as last page", "error", err)
			break
		}
		if !advanced {
			logger.Info("no further pages", "page", c.state.Page)
			break
		}
		c.state.Page++
	}

	c.flush(abortErr != nil)
	return c.state.Records, abortErr
}

// establishSession acquires a browsing session with bounded fixed-delay
// retries. Cold setup gets no exponential backoff: either Chrome comes up or
// it does not.
func (c *CrawlSession) establishSession(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= c.cfg.SessionRetries; attempt++ {
		var sess browser.Session
		sess, err = c.newSession(ctx)
		if err == nil {
			c.sess = sess
			return nil
		}
		c.run.Logger.Warn("browsing session acquisition failed",
			"attempt", attempt, "max_attempts", c.cfg.SessionRetries, "error", err)
		if attempt < c.cfg.SessionRetries {
			select {
			case <-time.After(c.cfg.SessionRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

func (c *CrawlSession) submitSearch(ctx context.Context) error {
	return retry.Do(ctx, c.run.Logger, "submit search", c.cfg.MaxAttempts, c.cfg.BackoffBase, func() error {
		return scraper.SubmitSearch(ctx, c.sess, c.cfg, c.run.Logger)
	})
}

func (c *CrawlSession) listURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := retry.Do(ctx, c.run.Logger, "list listing urls", c.cfg.MaxAttempts, c.cfg.BackoffBase, func() error {
		var lerr error
		urls, lerr = c.walker.ListListingURLs(ctx, c.sess)
		return lerr
	})
	return urls, err
}

// recoverSession re-establishes the browsing session after a SessionFault:
// fresh session, search re-submission, then pagination back to the page that
// was being scanned.
func (c *CrawlSession) recoverSession(ctx context.Context) error {
	c.run.Logger.Warn("re-establishing browsing session", "page", c.state.Page)
	if c.sess != nil {
		c.sess.Close()
		c.sess = nil
	}
	if err := c.establishSession(ctx); err != nil {
		return err
	}
	if err := c.submitSearch(ctx); err != nil {
		return err
	}
	for page := 1; page < c.state.Page; page++ {
		advanced, err := c.walker.AdvanceToNextPage(ctx, c.sess, page)
		if err != nil {
			return fmt.Errorf("re-advance to page %d: %w", page+1, err)
		}
		if !advanced {
			return fmt.Errorf("page %d no longer reachable after recovery", page+1)
		}
	}
	return nil
}

// olderThanCutoff applies the stop rule to one record. Sentinel or
// unparseable dates mean "recency unknown" and never stop the run.
func (c *CrawlSession) olderThanCutoff(rec models.ListingRecord) bool {
	date, ok := models.ParseListingDate(rec.Date)
	if !ok {
		return false
	}
	cutoff := c.Now().AddDate(0, 0, -c.cfg.RecencyDays)
	return date.Before(cutoff)
}

// flush writes the accumulated records to the terminal artifact. Failures
// are logged, not propagated: there is nothing left to degrade to.
func (c *CrawlSession) flush(aborted bool) {
	var err error
	if aborted {
		err = c.sink.WriteAborted(c.state.Records)
	} else {
		err = c.sink.WriteFinal(c.state.Records)
	}
	if err != nil {
		c.run.Logger.Error("final artifact write failed",
			"aborted", aborted, "records", len(c.state.Records), "error", err)
	}
}
