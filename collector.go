package iconcollector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// CollectionRequest describes one collection to extract.
type CollectionRequest struct {
	// URL is the collection page.
	URL string
	// Size is the pixel size requested for every icon. Zero means
	// [DefaultSize].
	Size int
	// Credentials are used only when the page shows no icons. Nil means
	// rely on the session stored in the profile directory.
	Credentials *Credentials
	// Headless hides the browser window. A visible window lets a person
	// solve a verification challenge during login.
	Headless bool
}

func (r CollectionRequest) validate() (CollectionRequest, error) {
	if _, err := url.ParseRequestURI(r.URL); err != nil {
		return r, fmt.Errorf("%w: URL %q: %w", ErrInvalidRequest, r.URL, err)
	}
	if r.Size < 0 {
		return r, fmt.Errorf("%w: size %d", ErrInvalidRequest, r.Size)
	}
	if r.Size == 0 {
		r.Size = DefaultSize
	}
	return r, nil
}

// sessionOpener starts the browser session for one run.
type sessionOpener func(ctx context.Context, cfg collectorConfig, headless bool) (Session, error)

// Collector extracts icon collections through a browser that keeps its
// login state in a profile directory.
//
// Runs on one Collector are serialized because they share the profile
// directory. To scrape concurrently, create one Collector per profile
// directory with [WithProfileDir].
type Collector struct {
	cfg  collectorConfig
	open sessionOpener
	clk  clock

	runMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// NewCollector creates a Collector with the given options. No browser is
// started until a collection is requested.
func NewCollector(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.profileDir == "" {
		cfg.profileDir = DefaultProfileDir()
	}
	return &Collector{
		cfg:  cfg,
		open: openSession,
		clk:  realClock{},
	}
}

// DefaultProfileDir returns the profile directory used when none is set:
// icon-collector/profile under the user cache directory, or .browser_data
// in the working directory when no cache directory is known.
func DefaultProfileDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".browser_data"
	}
	return filepath.Join(dir, "icon-collector", "profile")
}

// Close marks the Collector as closed. Close is idempotent.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Collector) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// ExtractCollection runs the full pipeline for req: open the browser,
// detect an existing session, log in if needed, scroll until every icon
// has rendered, then extract the icons.
//
// Failures during the run never surface as an error. They are reported
// through [Result.Outcome] and [Result.Err], with no records. The returned
// error is non-nil only for a closed Collector or an invalid request; an
// invalid request still yields a Result with [OutcomeFailed].
func (c *Collector) ExtractCollection(ctx context.Context, req CollectionRequest) (*Result, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	req, err := req.validate()
	if err != nil {
		res := &Result{URL: req.URL, Size: req.Size, Records: []IconRecord{}, CollectedAt: time.Now()}
		res.fail(OutcomeFailed, err)
		return res, err
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	res := &Result{URL: req.URL, Size: req.Size, Records: []IconRecord{}}
	c.run(ctx, req, res)
	if !res.OK() {
		res.Records = []IconRecord{}
	}
	res.CollectedAt = time.Now()
	return res, nil
}

// run fills res. Every exit path closes the session it opened.
func (c *Collector) run(ctx context.Context, req CollectionRequest, res *Result) {
	logger := c.cfg.logger
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("Collection run panicked")
			res.fail(OutcomeFailed, fmt.Errorf("iconcollector: panic: %v", r))
		}
	}()

	mode := "headless"
	if !req.Headless {
		mode = "visible"
	}
	logger.Info().Str("mode", mode).Str("profile_dir", c.cfg.profileDir).Msg("Launching browser")

	sess, err := c.open(ctx, c.cfg, req.Headless)
	if err != nil {
		logger.Error().Err(err).Msg("Could not start browser")
		res.fail(classify(err, OutcomeFailed), err)
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing browser failed")
		}
	}()

	logger.Info().Str("url", req.URL).Msg("Opening collection page")
	if err := sess.Navigate(ctx, req.URL); err != nil {
		logger.Error().Err(err).Msg("Could not open collection page")
		res.fail(classify(err, OutcomeFailed), err)
		return
	}
	if err := c.clk.Sleep(ctx, c.cfg.timings.settle); err != nil {
		res.fail(OutcomeTimeout, err)
		return
	}

	t := c.cfg.timings
	authed := probeSession(ctx, sess, c.clk, t.pollInterval, t.load, logger)
	if err := ctx.Err(); err != nil {
		logger.Error().Err(err).Msg("Run ended while probing for an existing session")
		res.fail(OutcomeTimeout, err)
		return
	}
	if authed {
		logger.Info().Msg("Already logged in, skipping login")
	} else if req.Credentials.valid() {
		logger.Info().Msg("Not logged in, attempting login")
		d := &loginDriver{page: sess, clk: c.clk, t: t, logger: logger, loginTo: LoginURL}
		if err := d.login(ctx, req.URL, *req.Credentials); err != nil {
			logger.Error().Err(err).Msg("Automatic login failed, check your credentials")
			res.fail(classify(err, OutcomeLoginFailed), err)
			return
		}
	} else {
		logger.Warn().Msg("No icons visible and no credentials provided")
		res.fail(OutcomeAuthRequired, ErrAuthRequired)
		return
	}

	logger.Info().Msg("Waiting for icons to load")
	if err := sess.WaitVisible(ctx, iconWaitSelector, t.iconWait); err != nil {
		if ctx.Err() != nil {
			res.fail(OutcomeTimeout, ctx.Err())
			return
		}
		logger.Warn().Err(err).Msg("Could not find icon elements with standard selectors")
	}

	if title, err := sess.Title(ctx); err == nil {
		res.Title = title
		logger.Info().Str("title", title).Msg("Collection page loaded")
	}

	p := &paginator{page: sess, clk: c.clk, t: t, logger: logger}
	scrolls, count, err := p.run(ctx)
	res.Scrolls = scrolls
	if err != nil {
		res.fail(OutcomeTimeout, err)
		return
	}
	logger.Info().Int("scrolls", scrolls).Int("icons", count).Msg("Finished loading collection")

	ex := &extractor{size: req.Size, logger: logger}
	records, strategy, err := ex.extract(ctx, sess)
	if err != nil {
		logger.Error().Err(err).Msg("Extracting icons failed")
		res.fail(classify(err, OutcomeFailed), err)
		return
	}
	res.Records = records
	res.Strategy = strategy
	res.Outcome = OutcomeSuccess
	logger.Info().Int("icons", len(records)).Str("strategy", strategy.String()).Msg("Total unique icons found")
}

func (r *Result) fail(o Outcome, err error) {
	r.Outcome = o
	r.Err = err
	r.Strategy = StrategyNone
}

// classify maps deadline errors to OutcomeTimeout and everything else to
// fallback.
func classify(err error, fallback Outcome) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeTimeout
	}
	return fallback
}

// --- Package-level convenience functions ---

// ExtractCollection runs one collection request on a temporary
// [Collector].
func ExtractCollection(ctx context.Context, req CollectionRequest, opts ...Option) (*Result, error) {
	c := NewCollector(opts...)
	defer c.Close()
	return c.ExtractCollection(ctx, req)
}

// ExtractHTML extracts icons from collection page markup saved from a
// browser, without launching one. Only image-host URLs already present in
// the markup can be found.
func ExtractHTML(ctx context.Context, markup string, size int, logger arbor.ILogger) (*Result, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidRequest, size)
	}
	if size == 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	doc, err := newSnapshotDocument(markup)
	if err != nil {
		return nil, err
	}
	ex := &extractor{size: size, logger: logger}
	records, strategy, err := ex.extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Result{
		Size:        size,
		Records:     records,
		Outcome:     OutcomeSuccess,
		Strategy:    strategy,
		CollectedAt: time.Now(),
	}, nil
}
