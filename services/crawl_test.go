package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfribergo93/nexxt-scraper/browser"
	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/models"
)

// ── Synthetic directory ───────────────────────────────────────────────────────

// fakeSite is a scripted rendition of the paginated directory shared by every
// session a test run acquires, so faults injected for a URL survive session
// re-establishment.
type fakeSite struct {
	resultPages []string          // HTML per results page, in order
	details     map[string]string // listing URL → detail HTML

	sessionFaults   map[string]int // URL → OpenContext SessionFaults left
	transientFaults map[string]int // URL → OpenContext TransientErrors left

	visited  []string // every successfully opened listing URL, in order
	sessions int      // sessions handed out by the factory
}

func resultsHTML(urls ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="result-list">`)
	for _, u := range urls {
		fmt.Fprintf(&b, `<li><a href="%s">Inserat</a></li>`, u)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func detailHTML(title, date string) string {
	return fmt.Sprintf(`<html><body><main>
		<h1>%s</h1>
		<div class="inserat-beschreibung">Etablierter Betrieb mit Stammkundschaft.</div>
		<dl>
			<dt>Standort</dt><dd>Bayern</dd>
			<dt>Branche</dt><dd>Handwerk</dd>
			<dt>Datum</dt><dd>%s</dd>
			<dt>Chiffre</dt><dd>VA-1</dd>
		</dl>
	</main></body></html>`, title, date)
}

func listingURL(id int) string {
	return fmt.Sprintf("https://www.nexxt-change.org/DE/Verkaufsangebot/detail.html?adId=%d", id)
}

// ── Fake browsing session ─────────────────────────────────────────────────────

// fakeSession emulates the browsing capability against a fakeSite. The
// results view lives on handle 0; OpenContext serves detail pages on fresh
// handles.
type fakeSession struct {
	site   *fakeSite
	page   int // 1-based results page the results context shows
	cur    browser.Handle
	next   browser.Handle
	tabs   map[browser.Handle]string // handle → listing URL ("" = results view)
	closed bool
}

func newFakeSession(site *fakeSite) *fakeSession {
	return &fakeSession{
		site: site,
		page: 1,
		next: 1,
		tabs: map[browser.Handle]string{0: ""},
	}
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error {
	s.page = 1
	s.cur = 0
	return nil
}

func (s *fakeSession) OpenContext(_ context.Context, url string) (browser.Handle, error) {
	if n := s.site.sessionFaults[url]; n > 0 {
		s.site.sessionFaults[url] = n - 1
		return 0, &browser.SessionFault{Op: "open context", Err: errors.New("browser gone")}
	}
	if n := s.site.transientFaults[url]; n > 0 {
		s.site.transientFaults[url] = n - 1
		return 0, &browser.TransientError{Op: "open context", Err: errors.New("navigation timeout")}
	}
	h := s.next
	s.next++
	s.tabs[h] = url
	s.cur = h
	s.site.visited = append(s.site.visited, url)
	return h, nil
}

func (s *fakeSession) SwitchTo(h browser.Handle) error {
	if _, ok := s.tabs[h]; !ok {
		return &browser.SessionFault{Op: "switch context", Err: errors.New("unknown handle")}
	}
	s.cur = h
	return nil
}

func (s *fakeSession) CloseContext(h browser.Handle) error {
	delete(s.tabs, h)
	return nil
}

func (s *fakeSession) Current() browser.Handle { return s.cur }

func (s *fakeSession) WaitVisible(context.Context, string, time.Duration) error { return nil }

func (s *fakeSession) Evaluate(_ context.Context, js string, out any) error {
	flag, ok := out.(*bool)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(js, "akzeptieren"):
		*flag = false // no consent banner in the synthetic site
	case strings.Contains(js, "nächste"):
		// The generic next affordance exists while more pages remain.
		if s.page < len(s.site.resultPages) {
			s.page++
			*flag = true
		} else {
			*flag = false
		}
	default:
		*flag = false
	}
	return nil
}

func (s *fakeSession) OuterHTML(context.Context) (string, error) {
	url := s.tabs[s.cur]
	if url == "" {
		return s.site.resultPages[s.page-1], nil
	}
	return s.site.details[url], nil
}

func (s *fakeSession) Location(context.Context) (string, error) { return s.tabs[s.cur], nil }

func (s *fakeSession) Close() { s.closed = true }

// ── Fake sink ─────────────────────────────────────────────────────────────────

type fakeSink struct {
	checkpoints [][]models.ListingRecord
	final       []models.ListingRecord
	aborted     []models.ListingRecord
	finalWrites int
	abortWrites int
}

func (s *fakeSink) WriteCheckpoint(records []models.ListingRecord) error {
	cp := make([]models.ListingRecord, len(records))
	copy(cp, records)
	s.checkpoints = append(s.checkpoints, cp)
	return nil
}

func (s *fakeSink) WriteFinal(records []models.ListingRecord) error {
	s.final = append([]models.ListingRecord(nil), records...)
	s.finalWrites++
	return nil
}

func (s *fakeSink) WriteAborted(records []models.ListingRecord) error {
	s.aborted = append([]models.ListingRecord(nil), records...)
	s.abortWrites++
	return nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MaxAttempts = 2
	cfg.SessionRetries = 2
	cfg.RecencyDays = 5
	cfg.MaxPages = 0
	cfg.PacingMin = 0
	cfg.PacingMax = 0
	cfg.BackoffBase = 0
	cfg.SessionRetryDelay = 0
	return cfg
}

func newTestCrawl(t *testing.T, cfg config.Config, site *fakeSite, sink *fakeSink) *CrawlSession {
	t.Helper()
	if site.sessionFaults == nil {
		site.sessionFaults = map[string]int{}
	}
	if site.transientFaults == nil {
		site.transientFaults = map[string]int{}
	}
	run := RunContext{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:     "test-run",
		StartedAt: time.Now(),
	}
	factory := func(context.Context) (browser.Session, error) {
		site.sessions++
		return newFakeSession(site), nil
	}
	crawl := NewCrawlSession(cfg, run, factory, sink)
	crawl.Now = func() time.Time { return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) }
	return crawl
}

func dateDaysAgo(crawl *CrawlSession, days int) string {
	return crawl.Now().AddDate(0, 0, -days).Format(models.DateLayout)
}

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestCrawlStopsOnOldListingMidPage(t *testing.T) {
	site := &fakeSite{
		resultPages: []string{
			resultsHTML(listingURL(1), listingURL(2), listingURL(3)),
			resultsHTML(listingURL(4), listingURL(5)),
		},
		details: map[string]string{},
	}
	sink := &fakeSink{}
	crawl := newTestCrawl(t, testConfig(), site, sink)

	site.details[listingURL(1)] = detailHTML("Bäckerei", dateDaysAgo(crawl, 0))
	site.details[listingURL(2)] = detailHTML("Metallbau", dateDaysAgo(crawl, 0))
	site.details[listingURL(3)] = detailHTML("Gastronomie", dateDaysAgo(crawl, 10))
	site.details[listingURL(4)] = detailHTML("Kiosk", dateDaysAgo(crawl, 0))
	site.details[listingURL(5)] = detailHTML("Werkstatt", dateDaysAgo(crawl, 0))

	records, err := crawl.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3, "the triggering record is included, nothing after it")
	assert.Equal(t, "3", records[2].ID, "stop record is the last one appended")
	assert.True(t, crawl.State().OldFound())
	assert.Equal(t,
		[]string{listingURL(1), listingURL(2), listingURL(3)},
		site.visited, "page 2 is never visited")
	assert.Equal(t, 1, sink.finalWrites)
	assert.Zero(t, sink.abortWrites)
	assert.Equal(t, records, sink.final)
}

func TestCrawlExhaustsPagesWhenDatesUnparseable(t *testing.T) {
	site := &fakeSite{
		resultPages: []string{
			resultsHTML(listingURL(1), listingURL(2)),
			resultsHTML(listingURL(3)),
		},
		details: map[string]string{
			// No Datum row and no date-shaped text anywhere: recency unknown.
			listingURL(1): `<html><body><main><h1>Eins</h1></main></body></html>`,
			listingURL(2): `<html><body><main><h1>Zwei</h1></main></body></html>`,
			listingURL(3): `<html><body><main><h1>Drei</h1></main></body></html>`,
		},
	}
	sink := &fakeSink{}
	crawl := newTestCrawl(t, testConfig(), site, sink)

	records, err := crawl.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, records, 3, "unknown recency never stops the run")
	assert.False(t, crawl.State().OldFound())
	assert.Equal(t, models.NA, records[0].Date)
	assert.Equal(t, 2, crawl.State().Page, "both pages were scanned")
	assert.Len(t, sink.checkpoints, 2, "one checkpoint per page")
}

func TestCrawlRecoversFromSessionFault(t *testing.T) {
	site := &fakeSite{
		resultPages: []string{
			resultsHTML(listingURL(1), listingURL(2), listingURL(3)),
		},
		details:       map[string]string{},
		sessionFaults: map[string]int{listingURL(2): 1},
	}
	sink := &fakeSink{}
	crawl := newTestCrawl(t, testConfig(), site, sink)

	for i := 1; i <= 3; i++ {
		site.details[listingURL(i)] = detailHTML(fmt.Sprintf("Betrieb %d", i), dateDaysAgo(crawl, 0))
	}

	records, err := crawl.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "2", "3"},
		[]string{records[0].ID, records[1].ID, records[2].ID},
		"listing 1 preserved, listing 2 retried after recovery, listing 3 proceeds")
	assert.Equal(t, 2, site.sessions, "a fresh session was acquired")
	assert.False(t, crawl.State().OldFound())
	assert.Equal(t, 1, sink.finalWrites)
}

func TestCrawlAbortsWhenFaultPersistsAfterRecovery(t *testing.T) {
	site := &fakeSite{
		resultPages: []string{resultsHTML(listingURL(1), listingURL(2))},
		details:     map[string]string{},
		// Both the first visit and the post-recovery retry fault out.
		sessionFaults: map[string]int{listingURL(2): 2},
	}
	sink := &fakeSink{}
	cfg := testConfig()
	crawl := newTestCrawl(t, cfg, site, sink)

	site.details[listingURL(1)] = detailHTML("Betrieb", dateDaysAgo(crawl, 0))
	site.details[listingURL(2)] = detailHTML("Betrieb", dateDaysAgo(crawl, 0))

	records, err := crawl.Run(context.Background())

	require.Error(t, err)
	assert.Len(t, records, 1, "collected data survives the abort")
	assert.True(t, crawl.State().OldFound(), "termination sentinel is forced")
	assert.Equal(t, 1, sink.abortWrites, "fatal path still flushes an artifact")
	assert.Equal(t, records, sink.aborted)
}

func TestCrawlDegradesListingToErrorAfterRetries(t *testing.T) {
	site := &fakeSite{
		resultPages:     []string{resultsHTML(listingURL(1), listingURL(2))},
		details:         map[string]string{},
		transientFaults: map[string]int{listingURL(1): 10},
	}
	sink := &fakeSink{}
	crawl := newTestCrawl(t, testConfig(), site, sink)

	site.details[listingURL(2)] = detailHTML("Betrieb", dateDaysAgo(crawl, 0))

	records, err := crawl.Run(context.Background())

	require.NoError(t, err, "a single abandoned listing does not end the run")
	require.Len(t, records, 2)
	assert.Equal(t, models.Error, records[0].Title)
	assert.Equal(t, "1", records[0].ID, "id recovered from the URL")
	assert.Equal(t, listingURL(1), records[0].URL)
	assert.Equal(t, "Betrieb", records[1].Title, "the next listing proceeds normally")
}

func TestCrawlHonoursPageCap(t *testing.T) {
	site := &fakeSite{
		resultPages: []string{
			resultsHTML(listingURL(1)),
			resultsHTML(listingURL(2)),
			resultsHTML(listingURL(3)),
		},
		details: map[string]string{},
	}
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.MaxPages = 2
	crawl := newTestCrawl(t, cfg, site, sink)

	for i := 1; i <= 3; i++ {
		site.details[listingURL(i)] = detailHTML("Betrieb", dateDaysAgo(crawl, 0))
	}

	records, err := crawl.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, crawl.State().Page)
}

func TestCrawlFlushesWhenSessionNeverComesUp(t *testing.T) {
	sink := &fakeSink{}
	cfg := testConfig()
	run := RunContext{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:  "test-run",
	}
	boom := errors.New("chrome missing")
	attempts := 0
	crawl := NewCrawlSession(cfg, run, func(context.Context) (browser.Session, error) {
		attempts++
		return nil, boom
	}, sink)

	records, err := crawl.Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Empty(t, records)
	assert.Equal(t, cfg.SessionRetries, attempts, "cold setup retries with a fixed delay, then gives up")
	assert.Equal(t, 1, sink.abortWrites, "even an empty run writes its artifact")
}
