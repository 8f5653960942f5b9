// icon-collector downloads the icons of an Icons8 collection as PNG or ICO
// files.
//
// Usage:
//
//	icon-collector --url <collection-url> [options]
//	icon-collector --interactive
//	icon-collector --from-html saved-page.html --format png
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/ternarybob/arbor"

	iconcollector "github.com/porticus-lab/go-icon-collector"
	"github.com/porticus-lab/go-icon-collector/internal/config"
	"github.com/porticus-lab/go-icon-collector/internal/logging"
	"github.com/porticus-lab/go-icon-collector/internal/materialize"
	"github.com/porticus-lab/go-icon-collector/internal/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if flags.help {
		flags.fs.Usage()
		return nil
	}

	cfg, err := config.LoadFromFiles(flags.configPath)
	if err != nil {
		return err
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)

	format, err := materialize.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	var res *iconcollector.Result
	if flags.fromHTML != "" {
		res, err = extractSaved(ctx, flags.fromHTML, cfg.Collection.Size, logger)
		if err != nil {
			return err
		}
	} else {
		if flags.interactive || cfg.Collection.URL == "" {
			pterm.DefaultHeader.
				WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
				WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
				Println("Icons8 Downloader")
			ans, err := prompt.Run(prompt.Terminal{}, prompt.Answers{
				URL:      cfg.Collection.URL,
				Email:    cfg.Collection.Email,
				Format:   format,
				Size:     cfg.Collection.Size,
				Headless: !cfg.Browser.Visible,
			})
			if err != nil {
				return err
			}
			if ans == nil {
				pterm.Info.Println("Cancelled.")
				return nil
			}
			cfg.Collection.URL = ans.URL
			cfg.Collection.Email = ans.Email
			cfg.Collection.Password = ans.Password
			cfg.Collection.Size = ans.Size
			cfg.Browser.Visible = !ans.Headless
			format = ans.Format
		}

		res, err = collect(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	if cfg.Output.Manifest != "" {
		if err := res.WriteToFile(cfg.Output.Manifest, 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
		logger.Info().Str("path", cfg.Output.Manifest).Msg("Manifest written")
	}

	if !res.OK() {
		if res.Outcome == iconcollector.OutcomeAuthRequired {
			pterm.Warning.Println("Not logged in. Pass --email and --password, or run once with --visible and log in by hand.")
		}
		return fmt.Errorf("collection failed: %s", res.FailureReason())
	}
	if res.Len() == 0 {
		pterm.Warning.Println("No icons found!")
		return nil
	}
	pterm.Success.Printfln("Found %d icons", res.Len())

	sum, err := download(ctx, cfg, format, res.Records, logger)
	if err != nil {
		return err
	}
	printSummary(sum)
	return nil
}

func extractSaved(ctx context.Context, path string, size int, logger arbor.ILogger) (*iconcollector.Result, error) {
	markup, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	pterm.Info.Printfln("Extracting icons from saved page: %s", path)
	return iconcollector.ExtractHTML(ctx, string(markup), size, logger)
}

func collect(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*iconcollector.Result, error) {
	c := iconcollector.NewCollector(collectorOptions(cfg, logger)...)
	defer c.Close()

	if timeout := config.Duration(cfg.Timing.RunTimeout, 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := iconcollector.CollectionRequest{
		URL:      cfg.Collection.URL,
		Size:     cfg.Collection.Size,
		Headless: !cfg.Browser.Visible,
	}
	if cfg.Collection.Email != "" && cfg.Collection.Password != "" {
		req.Credentials = &iconcollector.Credentials{
			Email:    cfg.Collection.Email,
			Password: cfg.Collection.Password,
		}
	}

	pterm.Info.Printfln("Scraping collection from: %s", req.URL)
	return c.ExtractCollection(ctx, req)
}

func collectorOptions(cfg *config.Config, logger arbor.ILogger) []iconcollector.Option {
	opts := []iconcollector.Option{
		iconcollector.WithLogger(logger),
		iconcollector.WithTimeout(config.Duration(cfg.Timing.NavigationTimeout, 60*time.Second)),
		iconcollector.WithSettleDelay(config.Duration(cfg.Timing.SettleDelay, 5*time.Second)),
		iconcollector.WithVerificationDelay(config.Duration(cfg.Timing.VerificationDelay, 5*time.Second)),
		iconcollector.WithScrollSettle(config.Duration(cfg.Timing.ScrollSettle, 1500*time.Millisecond)),
		iconcollector.WithMaxScrolls(cfg.Timing.MaxScrolls),
		iconcollector.WithUserAgent(cfg.Browser.UserAgent),
	}
	if cfg.Browser.ProfileDir != "" {
		opts = append(opts, iconcollector.WithProfileDir(cfg.Browser.ProfileDir))
	}
	if cfg.Browser.ChromePath != "" {
		opts = append(opts, iconcollector.WithChromePath(cfg.Browser.ChromePath))
	}
	if cfg.Browser.AutoDownload {
		opts = append(opts, iconcollector.WithAutoDownload())
	}
	if cfg.Browser.NoSandbox {
		opts = append(opts, iconcollector.WithNoSandbox())
	}
	return opts
}

func download(ctx context.Context, cfg *config.Config, format materialize.Format, records []iconcollector.IconRecord, logger arbor.ILogger) (materialize.Summary, error) {
	fetcher := materialize.NewDownloader(
		materialize.WithRequestTimeout(config.Duration(cfg.Download.RequestTimeout, 30*time.Second)),
		materialize.WithRetries(cfg.Download.Retries, 500*time.Millisecond),
		materialize.WithRateLimit(cfg.Download.RateLimit),
	)

	bar, err := pterm.DefaultProgressbar.
		WithTotal(len(records)).
		WithTitle("Downloading icons").
		Start()
	if err != nil {
		return materialize.Summary{}, err
	}
	defer bar.Stop()

	m := materialize.New(cfg.Output.Dir, format, fetcher,
		materialize.WithLogger(logger),
		materialize.WithProgress(func(pos, total int, rec iconcollector.IconRecord, err error) {
			if err != nil {
				pterm.Warning.Printfln("[%d/%d] %s: %v", pos, total, rec.Name, err)
			}
			bar.UpdateTitle(fmt.Sprintf("[%d/%d] %s", pos, total, rec.Name))
			bar.Increment()
		}),
	)
	return m.Run(ctx, records)
}

func printSummary(sum materialize.Summary) {
	pterm.Println()
	pterm.DefaultBox.
		WithTitle("Download complete").
		WithTitleTopCenter().
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen)).
		Println(summaryText(sum))
	pterm.Println()
}

func summaryText(sum materialize.Summary) string {
	var text string
	switch sum.Format {
	case materialize.FormatPNG:
		text = fmt.Sprintf("Downloaded %d PNG files\nLocation: %s", sum.Downloaded, sum.PNGDir)
	case materialize.FormatICO:
		text = fmt.Sprintf("Converted %d ICO files\nLocation: %s", sum.Converted, sum.ICODir)
	default:
		text = fmt.Sprintf("Downloaded %d PNG files to: %s\nConverted %d ICO files to: %s",
			sum.Downloaded, sum.PNGDir, sum.Converted, sum.ICODir)
	}
	if sum.Failed > 0 {
		text += fmt.Sprintf("\nFailed: %d of %d", sum.Failed, sum.Total)
	}
	return text
}
