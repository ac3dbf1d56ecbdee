package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/gfribergo93/nexxt-scraper/config"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeSession drives a single headless Chrome process via chromedp.
// Contexts map onto browser tabs; the first tab is opened eagerly so that
// session acquisition fails during construction rather than on first use.
type ChromeSession struct {
	allocCancel context.CancelFunc
	tabs        map[Handle]*tab
	current     Handle
	next        Handle
	limiter     *rate.Limiter
	cfg         config.Config
	logger      *slog.Logger
}

var _ Session = (*ChromeSession)(nil)

// NewChromeSession launches Chrome and opens the initial context.
func NewChromeSession(parent context.Context, cfg config.Config, logger *slog.Logger) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)

	// Running an empty task forces the browser process to start now.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, classify("launch browser", err)
	}

	s := &ChromeSession{
		allocCancel: allocCancel,
		tabs:        map[Handle]*tab{0: {ctx: tabCtx, cancel: tabCancel}},
		current:     0,
		next:        1,
		limiter:     rate.NewLimiter(rate.Every(cfg.MinNavInterval), 1),
		cfg:         cfg,
		logger:      logger,
	}
	return s, nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	t, err := s.tab(s.current)
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return &SessionFault{Op: "navigate", Err: err}
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.PageLoadTimeout)
	defer cancel()
	return classify("navigate "+url, chromedp.Run(runCtx, chromedp.Navigate(url)))
}

func (s *ChromeSession) OpenContext(ctx context.Context, url string) (Handle, error) {
	origin, err := s.tab(s.current)
	if err != nil {
		return 0, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, &SessionFault{Op: "open context", Err: err}
	}

	// A child of an existing tab context opens a fresh tab in the same
	// browser process.
	tabCtx, tabCancel := chromedp.NewContext(origin.ctx)
	runCtx, cancel := context.WithTimeout(tabCtx, s.cfg.PageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		tabCancel()
		return 0, classify("open context "+url, err)
	}

	h := s.next
	s.next++
	s.tabs[h] = &tab{ctx: tabCtx, cancel: tabCancel}
	s.current = h
	return h, nil
}

func (s *ChromeSession) SwitchTo(h Handle) error {
	t, err := s.tab(h)
	if err != nil {
		return err
	}
	if t.ctx.Err() != nil {
		return &SessionFault{Op: "switch context", Err: t.ctx.Err()}
	}
	s.current = h
	return nil
}

func (s *ChromeSession) CloseContext(h Handle) error {
	t, ok := s.tabs[h]
	if !ok {
		return &SessionFault{Op: "close context", Err: fmt.Errorf("unknown context handle %d", h)}
	}
	t.cancel()
	delete(s.tabs, h)
	return nil
}

func (s *ChromeSession) Current() Handle { return s.current }

func (s *ChromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	t, err := s.tab(s.current)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	return classify("wait for "+selector,
		chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)))
}

func (s *ChromeSession) Evaluate(ctx context.Context, js string, out any) error {
	t, err := s.tab(s.current)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.ElementWaitTimeout)
	defer cancel()
	return classify("evaluate script", chromedp.Run(runCtx, chromedp.Evaluate(js, out)))
}

func (s *ChromeSession) OuterHTML(ctx context.Context) (string, error) {
	t, err := s.tab(s.current)
	if err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.ElementWaitTimeout)
	defer cancel()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classify("read document", err)
	}
	return html, nil
}

func (s *ChromeSession) Location(ctx context.Context) (string, error) {
	t, err := s.tab(s.current)
	if err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(t.ctx, s.cfg.ElementWaitTimeout)
	defer cancel()
	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", classify("read location", err)
	}
	return loc, nil
}

func (s *ChromeSession) Close() {
	for h, t := range s.tabs {
		t.cancel()
		delete(s.tabs, h)
	}
	s.allocCancel()
}

func (s *ChromeSession) tab(h Handle) (*tab, error) {
	t, ok := s.tabs[h]
	if !ok {
		return nil, &SessionFault{Op: "use context", Err: fmt.Errorf("unknown context handle %d", h)}
	}
	if t.ctx.Err() != nil {
		return nil, &SessionFault{Op: "use context", Err: t.ctx.Err()}
	}
	return t, nil
}
