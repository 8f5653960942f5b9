// Package prompt asks for collection settings in the terminal.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/porticus-lab/go-icon-collector/internal/materialize"
)

// Answers holds everything the interactive flow collects.
type Answers struct {
	URL      string
	Email    string
	Password string
	Format   materialize.Format
	Size     int
	Headless bool
}

// Asker is the terminal surface the flow runs on.
type Asker interface {
	Text(label, def string) (string, error)
	Secret(label string) (string, error)
	Select(label string, options []string, def string) (string, error)
	Confirm(label string) (bool, error)
	Summary(title string, rows [][]string)
}

const (
	sizeCustom   = "Custom size"
	modeHeadless = "Headless (invisible)"
	modeVisible  = "Visible (show browser window)"
)

var formatOptions = []struct {
	label  string
	format materialize.Format
}{
	{"PNG only", materialize.FormatPNG},
	{"ICO only (deletes PNG after conversion)", materialize.FormatICO},
	{"Both PNG and ICO", materialize.FormatBoth},
}

var sizeOptions = []struct {
	label string
	size  int
}{
	{"64px  - Small", 64},
	{"128px - Medium", 128},
	{"256px - Large (Best Quality)", 256},
	{"512px - Extra Large", 512},
}

// Run walks through the questions, starting from def. It returns nil
// when the user declines to start.
func Run(a Asker, def Answers) (*Answers, error) {
	ans := def

	for {
		url, err := a.Text("Collection URL", def.URL)
		if err != nil {
			return nil, err
		}
		if url = strings.TrimSpace(url); url != "" {
			ans.URL = url
			break
		}
	}

	email, err := a.Text("Email (leave empty if already logged in)", def.Email)
	if err != nil {
		return nil, err
	}
	ans.Email = strings.TrimSpace(email)
	ans.Password = ""
	if ans.Email != "" {
		if ans.Password, err = a.Secret("Password"); err != nil {
			return nil, err
		}
	}

	labels := make([]string, len(formatOptions))
	defFormat := ""
	for i, o := range formatOptions {
		labels[i] = o.label
		if o.format == def.Format {
			defFormat = o.label
		}
	}
	choice, err := a.Select("Output format", labels, defFormat)
	if err != nil {
		return nil, err
	}
	ans.Format = parseFormatChoice(choice, def.Format)

	labels = make([]string, 0, len(sizeOptions)+1)
	defSize := sizeCustom
	for _, o := range sizeOptions {
		labels = append(labels, o.label)
		if o.size == def.Size {
			defSize = o.label
		}
	}
	labels = append(labels, sizeCustom)
	choice, err = a.Select("Icon size", labels, defSize)
	if err != nil {
		return nil, err
	}
	custom := ""
	if choice == sizeCustom {
		if custom, err = a.Text("Custom size (px)", strconv.Itoa(def.Size)); err != nil {
			return nil, err
		}
	}
	ans.Size = ParseSize(choice, custom)

	defMode := modeHeadless
	if !def.Headless {
		defMode = modeVisible
	}
	choice, err = a.Select("Browser mode", []string{modeHeadless, modeVisible}, defMode)
	if err != nil {
		return nil, err
	}
	ans.Headless = choice != modeVisible

	a.Summary("Summary", SummaryRows(ans))
	ok, err := a.Confirm("Start download?")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &ans, nil
}

func parseFormatChoice(label string, fallback materialize.Format) materialize.Format {
	for _, o := range formatOptions {
		if o.label == label {
			return o.format
		}
	}
	return fallback
}

// ParseSize maps a size menu choice to pixels. A custom value that is not
// a positive integer falls back to 256.
func ParseSize(choice, custom string) int {
	for _, o := range sizeOptions {
		if o.label == choice {
			return o.size
		}
	}
	if choice == sizeCustom {
		if n, err := strconv.Atoi(strings.TrimSpace(custom)); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

// SummaryRows renders the answers for confirmation.
func SummaryRows(a Answers) [][]string {
	url := a.URL
	if len(url) > 45 {
		url = url[:45] + "..."
	}
	email := a.Email
	if email == "" {
		email = "(using saved session)"
	}
	browser := "Headless"
	if !a.Headless {
		browser = "Visible"
	}
	return [][]string{
		{"Collection", url},
		{"Email", email},
		{"Format", a.Format.Label()},
		{"Size", fmt.Sprintf("%dpx", a.Size)},
		{"Browser", browser},
	}
}

// Terminal is the pterm implementation of [Asker].
type Terminal struct{}

func (Terminal) Text(label, def string) (string, error) {
	return pterm.DefaultInteractiveTextInput.WithDefaultValue(def).Show(label)
}

func (Terminal) Secret(label string) (string, error) {
	return pterm.DefaultInteractiveTextInput.WithMask("*").Show(label)
}

func (Terminal) Select(label string, options []string, def string) (string, error) {
	s := pterm.DefaultInteractiveSelect.WithOptions(options)
	if def != "" {
		s = s.WithDefaultOption(def)
	}
	return s.Show(label)
}

func (Terminal) Confirm(label string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.WithDefaultValue(true).Show(label)
}

func (Terminal) Summary(title string, rows [][]string) {
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-11s %s", r[0]+":", pterm.Cyan(r[1]))
	}
	pterm.Println()
	pterm.DefaultBox.
		WithTitle(title).
		WithTitleTopLeft().
		WithLeftPadding(2).
		WithRightPadding(2).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Println(b.String())
	pterm.Println()
}
