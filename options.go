package iconcollector

import (
	"time"

	"github.com/ternarybob/arbor"
)

// collectorConfig holds internal configuration for a Collector.
type collectorConfig struct {
	chromePath   string
	autoDownload bool
	noSandbox    bool
	profileDir   string
	userAgent    string
	logger       arbor.ILogger
	timings      timings
}

// timings bounds every wait the pipeline performs.
type timings struct {
	navigation   time.Duration // single navigation
	settle       time.Duration // after a navigation or click
	load         time.Duration // prober budget after the first load
	pollInterval time.Duration
	loginForm    time.Duration // inline login form wait
	loginPage    time.Duration // dedicated login page form wait
	fieldPause   time.Duration // between form field actions
	verification time.Duration // human verification window before submit
	submit       time.Duration // after submitting credentials
	iconWait     time.Duration
	scrollSettle time.Duration
	maxScrolls   int
	minScrolls   int
}

func defaultTimings() timings {
	return timings{
		navigation:   60 * time.Second,
		settle:       5 * time.Second,
		load:         8 * time.Second,
		pollInterval: 500 * time.Millisecond,
		loginForm:    15 * time.Second,
		loginPage:    20 * time.Second,
		fieldPause:   1 * time.Second,
		verification: 5 * time.Second,
		submit:       8 * time.Second,
		iconWait:     15 * time.Second,
		scrollSettle: 1500 * time.Millisecond,
		maxScrolls:   20,
		minScrolls:   5,
	}
}

func defaultConfig() collectorConfig {
	return collectorConfig{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		logger:    arbor.NewNoOpLogger(),
		timings:   defaultTimings(),
	}
}

// Option configures a [Collector].
type Option func(*collectorConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *collectorConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload downloads a compatible Chromium build when no browser
// is installed. The binary is cached between runs.
func WithAutoDownload() Option {
	return func(c *collectorConfig) {
		c.autoDownload = true
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *collectorConfig) {
		c.noSandbox = true
	}
}

// WithProfileDir sets the browser profile directory that keeps cookies
// and local storage between runs. Collectors used concurrently must each
// have their own directory.
func WithProfileDir(dir string) Option {
	return func(c *collectorConfig) {
		c.profileDir = dir
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(c *collectorConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger receiving progress messages. Defaults to a
// no-op logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *collectorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the maximum duration of a single navigation.
// Defaults to 60 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *collectorConfig) {
		if d > 0 {
			c.timings.navigation = d
		}
	}
}

// WithVerificationDelay sets how long the login driver pauses before
// submitting credentials, leaving room to solve a human-verification
// challenge in a visible browser. Defaults to 5 seconds.
func WithVerificationDelay(d time.Duration) Option {
	return func(c *collectorConfig) {
		if d >= 0 {
			c.timings.verification = d
		}
	}
}

// WithScrollSettle sets the pause after each scroll before icons are
// counted. Defaults to 1.5 seconds.
func WithScrollSettle(d time.Duration) Option {
	return func(c *collectorConfig) {
		if d >= 0 {
			c.timings.scrollSettle = d
		}
	}
}

// WithMaxScrolls sets the pagination budget. Defaults to 20.
func WithMaxScrolls(n int) Option {
	return func(c *collectorConfig) {
		if n > 0 {
			c.timings.maxScrolls = n
		}
	}
}

// WithSettleDelay sets the pause after navigations and clicks, and scales
// the other fixed pauses of the login sequence with it. Defaults to 5
// seconds.
func WithSettleDelay(d time.Duration) Option {
	return func(c *collectorConfig) {
		if d < 0 {
			return
		}
		c.timings.settle = d
		c.timings.fieldPause = d / 5
		c.timings.submit = d * 8 / 5
	}
}
