package iconcollector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser returns the browser executable to launch. An explicit
// path wins; otherwise an installed Chrome or Chromium is looked up, and
// when none is found and download is allowed a compatible Chromium binary
// is fetched into ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser
// (Windows). An empty path lets chromedp search on its own.
func resolveBrowser(explicit string, download bool) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	if !download {
		return "", nil
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("iconcollector: downloading browser: %w", err)
	}
	return path, nil
}

// openSession starts a browser on the configured profile directory and
// returns a session on a single tab.
func openSession(ctx context.Context, cfg collectorConfig, headless bool) (Session, error) {
	if err := os.MkdirAll(cfg.profileDir, 0o700); err != nil {
		return nil, fmt.Errorf("iconcollector: creating profile directory: %w", err)
	}

	execPath, err := resolveBrowser(cfg.chromePath, cfg.autoDownload)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.profileDir),
		chromedp.UserAgent(cfg.userAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
	)
	if headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch errors surface here. The first
	// Run allocates the browser and must not carry a deadline, or the
	// browser dies with it.
	if err := ctx.Err(); err != nil {
		tabCancel()
		allocCancel()
		return nil, err
	}
	if err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(1920, 1080, 1, false),
	); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("iconcollector: starting browser: %w", err)
	}

	return &cdpSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		navTimeout:  cfg.timings.navigation,
	}, nil
}

// cdpSession drives one browser tab over the Chrome DevTools Protocol.
type cdpSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration

	closeOnce sync.Once
}

// run executes actions on the tab, cancelling them when either ctx or the
// session ends.
func (s *cdpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *cdpSession) Navigate(ctx context.Context, rawURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()
	if err := s.run(navCtx, chromedp.Navigate(rawURL)); err != nil {
		return fmt.Errorf("iconcollector: navigating to %s: %w", rawURL, err)
	}
	return nil
}

func (s *cdpSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("iconcollector: waiting for %q: %w", selector, err)
	}
	return nil
}

func (s *cdpSession) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *cdpSession) Fill(ctx context.Context, selector, value string) error {
	if err := s.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("iconcollector: filling %q: %w", selector, err)
	}
	return nil
}

func (s *cdpSession) Click(ctx context.Context, selector string) error {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.click();
		return true;
	})()`, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fmt.Errorf("iconcollector: clicking %q: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("iconcollector: clicking %q: %w", selector, ErrLoginControlNotFound)
	}
	return nil
}

func (s *cdpSession) Evaluate(ctx context.Context, expression string, res any) error {
	return s.run(ctx, chromedp.Evaluate(expression, res))
}

func (s *cdpSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *cdpSession) Count(ctx context.Context, selector string) (int, error) {
	var n int
	expr := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *cdpSession) Attr(ctx context.Context, selector string, index int, name string) (string, bool, error) {
	var v *string
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) throw new Error("no element at index %d");
		return el.getAttribute(%s);
	})()`, jsString(selector), index, index, jsString(name))
	if err := s.run(ctx, chromedp.Evaluate(expr, &v)); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (s *cdpSession) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts the tab and the browser process down. Close is idempotent.
func (s *cdpSession) Close() error {
	s.closeOnce.Do(func() {
		s.tabCancel()
		s.allocCancel()
	})
	return nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
