// Package materialize writes extracted icon records to disk as PNG files,
// ICO files, or both.
package materialize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/ternarybob/arbor"

	iconcollector "github.com/porticus-lab/go-icon-collector"
	"github.com/porticus-lab/go-icon-collector/internal/ico"
)

// Output directory names below the output root.
const (
	PNGDirName  = "Collection_PNG"
	ICODirName  = "Collection_ICO"
	tempDirName = ".temp_png"
)

// Format selects which files are kept.
type Format int

const (
	// FormatICO keeps only ICO files. PNG downloads go to a temporary
	// directory that is removed afterwards.
	FormatICO Format = iota
	FormatPNG
	FormatBoth
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatICO:
		return "ico"
	case FormatBoth:
		return "both"
	}
	return "unknown"
}

// Label is the human-readable form used in summaries.
func (f Format) Label() string {
	switch f {
	case FormatPNG:
		return "PNG only"
	case FormatICO:
		return "ICO only"
	case FormatBoth:
		return "Both PNG and ICO"
	}
	return "Unknown"
}

// ParseFormat parses "png", "ico" or "both", ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "ico":
		return FormatICO, nil
	case "both":
		return FormatBoth, nil
	}
	return 0, fmt.Errorf("materialize: unknown format %q (want png, ico or both)", s)
}

func (f Format) keepsPNG() bool { return f == FormatPNG || f == FormatBoth }
func (f Format) writesICO() bool { return f == FormatICO || f == FormatBoth }

// SafeName turns an icon name into a file base name. It keeps letters,
// digits, spaces, hyphens and underscores, trims trailing whitespace and
// replaces spaces with underscores. An empty result becomes icon_<pos>.
func SafeName(name string, pos int) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		return "icon_" + strconv.Itoa(pos)
	}
	return safe
}

// Fetcher downloads one icon image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Progress is called after every icon with its 1-based position. err is
// nil when the icon was written.
type Progress func(pos, total int, rec iconcollector.IconRecord, err error)

// Summary reports what a run wrote.
type Summary struct {
	Format     Format
	Total      int
	Downloaded int
	Converted  int
	Failed     int
	PNGDir     string
	ICODir     string
}

// Materializer writes records below an output root.
type Materializer struct {
	outDir   string
	format   Format
	fetcher  Fetcher
	logger   arbor.ILogger
	progress Progress
}

// Option configures a [Materializer].
type Option func(*Materializer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(m *Materializer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithProgress registers a per-icon callback.
func WithProgress(p Progress) Option {
	return func(m *Materializer) {
		m.progress = p
	}
}

// New creates a Materializer writing below outDir.
func New(outDir string, format Format, fetcher Fetcher, opts ...Option) *Materializer {
	m := &Materializer{
		outDir:  outDir,
		format:  format,
		fetcher: fetcher,
		logger:  arbor.NewNoOpLogger(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run downloads every record and converts it as the format requires.
// Failures of single icons are counted and logged; only directory setup
// errors and context cancellation abort the run.
func (m *Materializer) Run(ctx context.Context, records []iconcollector.IconRecord) (Summary, error) {
	sum := Summary{Format: m.format, Total: len(records)}

	pngDir := filepath.Join(m.outDir, tempDirName)
	if m.format.keepsPNG() {
		pngDir = filepath.Join(m.outDir, PNGDirName)
		sum.PNGDir = pngDir
	}
	if err := os.MkdirAll(pngDir, 0o755); err != nil {
		return sum, fmt.Errorf("materialize: creating %s: %w", pngDir, err)
	}
	if !m.format.keepsPNG() {
		defer func() {
			if err := os.RemoveAll(pngDir); err != nil {
				m.logger.Warn().Err(err).Str("dir", pngDir).Msg("Removing temporary directory failed")
			}
		}()
	}
	if m.format.writesICO() {
		sum.ICODir = filepath.Join(m.outDir, ICODirName)
		if err := os.MkdirAll(sum.ICODir, 0o755); err != nil {
			return sum, fmt.Errorf("materialize: creating %s: %w", sum.ICODir, err)
		}
	}

	used := make(map[string]bool, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		pos := i + 1
		base := uniqueName(used, SafeName(rec.Name, pos), SafeName(rec.ID, pos))

		err := m.one(ctx, rec, base, pngDir, sum.ICODir, &sum)
		if err != nil {
			sum.Failed++
			m.logger.Warn().Err(err).Str("name", rec.Name).Str("id", rec.ID).Msg("Icon failed")
		} else {
			m.logger.Debug().Str("name", base).Int("pos", pos).Int("total", len(records)).Msg("Icon written")
		}
		if m.progress != nil {
			m.progress(pos, len(records), rec, err)
		}
	}

	m.logger.Info().
		Int("downloaded", sum.Downloaded).
		Int("converted", sum.Converted).
		Int("failed", sum.Failed).
		Msg("Materialized icons")
	return sum, nil
}

// uniqueName returns name, or name with the icon id and then a counter
// appended, whichever is not yet in used. Names are compared without case
// so no file overwrites another on case-insensitive filesystems.
func uniqueName(used map[string]bool, name, id string) string {
	taken := func(n string) bool { return used[strings.ToLower(n)] }
	candidate := name
	if taken(candidate) {
		candidate = name + "_" + id
		for n := 2; taken(candidate); n++ {
			candidate = name + "_" + id + "_" + strconv.Itoa(n)
		}
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func (m *Materializer) one(ctx context.Context, rec iconcollector.IconRecord, base, pngDir, icoDir string, sum *Summary) error {
	data, err := m.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		return err
	}
	pngPath := filepath.Join(pngDir, base+".png")
	if err := os.WriteFile(pngPath, data, 0o644); err != nil {
		return fmt.Errorf("materialize: writing %s: %w", pngPath, err)
	}
	sum.Downloaded++

	if !m.format.writesICO() {
		return nil
	}
	if m.format == FormatICO {
		defer os.Remove(pngPath)
	}
	if err := ico.ConvertFile(pngPath, filepath.Join(icoDir, base+".ico")); err != nil {
		return err
	}
	sum.Converted++
	return nil
}
