package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/porticus-lab/go-icon-collector/internal/config"
)

// cliFlags holds command-line values. Values are applied over the loaded
// configuration only when the flag was given explicitly.
type cliFlags struct {
	fs *pflag.FlagSet

	configPath   string
	url          string
	email        string
	password     string
	size         int
	output       string
	format       string
	visible      bool
	interactive  bool
	profileDir   string
	manifest     string
	fromHTML     string
	noSandbox    bool
	autoDownload bool
	logLevel     string
	help         bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	f := &cliFlags{fs: pflag.NewFlagSet("icon-collector", pflag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)

	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a TOML configuration file")
	fs.StringVarP(&f.url, "url", "u", "", "Collection URL to scrape icons from")
	fs.StringVarP(&f.email, "email", "e", "", "Account email for login")
	fs.StringVarP(&f.password, "password", "P", "", "Account password for login")
	fs.IntVarP(&f.size, "size", "z", 256, "Icon size in pixels")
	fs.StringVarP(&f.output, "output", "o", "data", "Output directory")
	fs.StringVarP(&f.format, "format", "f", "ico", "Output format: png, ico, or both")
	fs.BoolVarP(&f.visible, "visible", "v", false, "Show browser window (default: headless)")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "Run in interactive mode (prompts for input)")
	fs.StringVar(&f.profileDir, "profile-dir", "", "Browser profile directory that keeps the login session")
	fs.StringVarP(&f.manifest, "manifest", "m", "", "Write the extracted icon list as JSON to this file")
	fs.StringVar(&f.fromHTML, "from-html", "", "Extract icons from a saved collection page instead of a live browser")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "Disable the Chrome sandbox (needed as root in containers)")
	fs.BoolVar(&f.autoDownload, "auto-download", false, "Download Chromium when no browser is installed")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVarP(&f.help, "help", "h", false, "Show this help")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "icon-collector - download the icons of an Icons8 collection")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  icon-collector [flags]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Without --url the interactive mode starts.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply overlays explicitly set flags onto cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	changed := f.fs.Changed
	if changed("url") {
		cfg.Collection.URL = f.url
	}
	if changed("email") {
		cfg.Collection.Email = f.email
	}
	if changed("password") {
		cfg.Collection.Password = f.password
	}
	if changed("size") {
		cfg.Collection.Size = f.size
	}
	if changed("output") {
		cfg.Output.Dir = f.output
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("manifest") {
		cfg.Output.Manifest = f.manifest
	}
	if changed("visible") {
		cfg.Browser.Visible = f.visible
	}
	if changed("profile-dir") {
		cfg.Browser.ProfileDir = f.profileDir
	}
	if changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if changed("auto-download") {
		cfg.Browser.AutoDownload = f.autoDownload
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
}
