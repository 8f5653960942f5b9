package iconcollector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// fakeClock returns immediately and records every requested pause.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

func (c *fakeClock) total() time.Duration {
	var sum time.Duration
	for _, d := range c.sleeps {
		sum += d
	}
	return sum
}

// fakePage is a scripted Session backed by static markup. Markup is
// chosen by URL and by whether credentials have been submitted.
type fakePage struct {
	anonPages   map[string]string
	authedPages map[string]string

	loginControl bool
	submitButton bool
	form         bool

	// countFn, when set, replaces markup-based counting.
	countFn  func(selector string, scrolls int) (int, error)
	waitErrs map[string]error
	navErrs  map[string]error
	fillErr  error
	// fillBlocks lists selectors whose Fill waits for its context to end.
	fillBlocks map[string]bool
	panicOn  string

	loggedIn bool
	scrolls  int
	closes   int
	url      string
	doc      *snapshotDocument
	calls    []string
}

func newFakePage() *fakePage {
	return &fakePage{
		anonPages:   map[string]string{},
		authedPages: map[string]string{},
		waitErrs:    map[string]error{},
		navErrs:     map[string]error{},
		fillBlocks:  map[string]bool{},
	}
}

func (p *fakePage) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) called(prefix string) bool {
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (p *fakePage) load() error {
	markup, ok := p.anonPages[p.url]
	if p.loggedIn {
		if m, found := p.authedPages[p.url]; found {
			markup, ok = m, true
		}
	}
	if !ok {
		markup = "<html><body></body></html>"
	}
	doc, err := newSnapshotDocument(markup)
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

func (p *fakePage) Navigate(_ context.Context, rawURL string) error {
	p.record("navigate %s", rawURL)
	if p.panicOn == "navigate" {
		panic("navigate exploded")
	}
	if err := p.navErrs[rawURL]; err != nil {
		return err
	}
	p.url = rawURL
	return p.load()
}

func (p *fakePage) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	p.record("wait %s", selector)
	return p.waitErrs[selector]
}

func (p *fakePage) ScrollToBottom(context.Context) error {
	p.scrolls++
	p.record("scroll")
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, _ string) error {
	p.record("fill %s", selector)
	if p.fillBlocks[selector] {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.fillErr
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.record("click %s", selector)
	if selector == submitMarkSelector {
		p.loggedIn = true
	}
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, expression string, res any) error {
	var result bool
	switch expression {
	case markLoginControlJS:
		p.record("evaluate login-control")
		result = p.loginControl
	case markSubmitControlJS:
		p.record("evaluate submit-control")
		result = p.submitButton
	case submitFirstFormJS:
		p.record("evaluate submit-form")
		result = p.form
		if p.form {
			p.loggedIn = true
		}
	default:
		return errors.New("unexpected script")
	}
	if b, ok := res.(*bool); ok {
		*b = result
	}
	return nil
}

func (p *fakePage) Title(context.Context) (string, error) {
	return "My collection", nil
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	if p.countFn != nil {
		return p.countFn(selector, p.scrolls)
	}
	if p.doc == nil {
		return 0, nil
	}
	return p.doc.Count(ctx, selector)
}

func (p *fakePage) Attr(ctx context.Context, selector string, index int, name string) (string, bool, error) {
	if p.doc == nil {
		return "", false, errors.New("no document")
	}
	return p.doc.Attr(ctx, selector, index, name)
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", nil
	}
	return p.doc.Content(ctx)
}

func (p *fakePage) Close() error {
	p.closes++
	p.record("close")
	return nil
}

// gridMarkup renders icons the way the collection grid does. Each entry is
// an id and an alt text; an empty alt omits the attribute.
func gridMarkup(icons ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="app-grid">`)
	for _, ic := range icons {
		alt := ""
		if ic[1] != "" {
			alt = fmt.Sprintf(` alt=%q`, ic[1])
		}
		fmt.Fprintf(&b, `<div class="app-grid-icon__image"><img srcset="https://img.icons8.com/?size=48&id=%s&format=png 1x, https://img.icons8.com/?size=96&id=%s&format=png 2x"%s></div>`, ic[0], ic[0], alt)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

