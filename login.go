package iconcollector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
)

// LoginURL is the catalog's dedicated login page.
const LoginURL = "https://icons8.com/login"

// Credentials authenticate against the catalog.
type Credentials struct {
	Email    string
	Password string
}

// valid reports whether both fields are set.
func (c *Credentials) valid() bool {
	return c != nil && c.Email != "" && c.Password != ""
}

const (
	// loginMark tags the control found by a detection script so that a
	// later Click can address it by selector.
	loginMark          = "data-icon-collector-login"
	loginMarkSelector  = "[" + loginMark + "]"
	submitMark         = "data-icon-collector-submit"
	submitMarkSelector = "[" + submitMark + "]"

	passwordSelector = `input[type="password"]`
)

var markLoginControlJS = fmt.Sprintf(`(() => {
	const btns = document.querySelectorAll('.login-button, [class*="login"], button');
	for (const btn of btns) {
		if (btn.textContent.includes('Sign in') || btn.classList.contains('login-button')) {
			btn.setAttribute(%q, '');
			return true;
		}
	}
	return false;
})()`, loginMark)

var markSubmitControlJS = fmt.Sprintf(`(() => {
	for (const btn of document.querySelectorAll('button')) {
		if (btn.textContent.trim() === 'Log in' || btn.classList.contains('i8-login-form__submit')) {
			btn.setAttribute(%q, '');
			return true;
		}
	}
	return false;
})()`, submitMark)

const submitFirstFormJS = `(() => {
	const form = document.querySelector('form');
	if (!form) return false;
	form.submit();
	return true;
})()`

// affordanceKind names a login UI shape.
type affordanceKind int

const (
	affordanceInline affordanceKind = iota
	affordanceDedicated
)

func (k affordanceKind) String() string {
	switch k {
	case affordanceInline:
		return "inline"
	case affordanceDedicated:
		return "dedicated"
	}
	return "unknown"
}

// loginAffordance is one way of reaching a login form. open reports false
// when the affordance is not present on the page.
type loginAffordance struct {
	kind          affordanceKind
	emailSelector string
	formTimeout   time.Duration
	open          func(ctx context.Context, d *loginDriver) (bool, error)
}

// loginDriver submits credentials through the first login affordance
// found on the page and returns to the collection afterwards.
type loginDriver struct {
	page    Page
	clk     clock
	t       timings
	logger  arbor.ILogger
	loginTo string
}

func (d *loginDriver) affordances() []loginAffordance {
	return []loginAffordance{
		{
			kind:          affordanceInline,
			emailSelector: `input[type="email"], input[placeholder*="mail"]`,
			formTimeout:   d.t.loginForm,
			open: func(ctx context.Context, d *loginDriver) (bool, error) {
				var found bool
				if err := d.page.Evaluate(ctx, markLoginControlJS, &found); err != nil {
					return false, fmt.Errorf("iconcollector: locating sign-in control: %w", err)
				}
				if !found {
					return false, nil
				}
				d.logger.Info().Msg("Clicking Sign in control")
				if err := d.page.Click(ctx, loginMarkSelector); err != nil {
					return false, err
				}
				return true, nil
			},
		},
		{
			kind:          affordanceDedicated,
			emailSelector: `input[type="email"], input[placeholder*="mail"], input[placeholder="Email"]`,
			formTimeout:   d.t.loginPage,
			open: func(ctx context.Context, d *loginDriver) (bool, error) {
				d.logger.Info().Str("url", d.loginTo).Msg("No Sign in control found, opening login page")
				if err := d.page.Navigate(ctx, d.loginTo); err != nil {
					return false, err
				}
				return true, nil
			},
		},
	}
}

// login runs the full sequence. Any error means the run cannot continue.
func (d *loginDriver) login(ctx context.Context, collectionURL string, creds Credentials) error {
	var chosen *loginAffordance
	for _, a := range d.affordances() {
		ok, err := a.open(ctx, d)
		if err != nil {
			return err
		}
		if ok {
			chosen = &a
			break
		}
	}
	if chosen == nil {
		return ErrLoginControlNotFound
	}
	d.logger.Debug().Str("affordance", chosen.kind.String()).Msg("Login form requested")

	if err := d.clk.Sleep(ctx, d.t.settle); err != nil {
		return err
	}
	if err := d.page.WaitVisible(ctx, chosen.emailSelector, chosen.formTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrLoginFormNotFound, err)
	}

	d.logger.Info().Str("email", creds.Email).Msg("Filling email")
	if err := d.fill(ctx, chosen.emailSelector, creds.Email, chosen.formTimeout); err != nil {
		return err
	}
	d.logger.Info().Msg("Filling password")
	if err := d.fill(ctx, passwordSelector, creds.Password, chosen.formTimeout); err != nil {
		return err
	}

	d.logger.Info().Dur("delay", d.t.verification).Msg("Waiting for verification challenge, if any")
	if err := d.clk.Sleep(ctx, d.t.verification); err != nil {
		return err
	}

	if err := d.submit(ctx); err != nil {
		return err
	}

	d.logger.Info().Msg("Waiting for login to complete")
	if err := d.clk.Sleep(ctx, d.t.submit); err != nil {
		return err
	}

	d.logger.Info().Str("url", collectionURL).Msg("Returning to collection page")
	if err := d.page.Navigate(ctx, collectionURL); err != nil {
		return err
	}
	if err := d.clk.Sleep(ctx, d.t.settle); err != nil {
		return err
	}
	d.logger.Info().Msg("Login completed")
	return nil
}

// fill types value into selector within timeout. A field that never
// becomes interactable counts as a missing form.
func (d *loginDriver) fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	fillCtx, cancel := context.WithTimeout(ctx, timeout)
	err := d.page.Fill(fillCtx, selector, value)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn().Str("selector", selector).Dur("timeout", timeout).Msg("Login field not fillable in time")
			return fmt.Errorf("%w: %q not fillable within %s", ErrLoginFormNotFound, selector, timeout)
		}
		return err
	}
	return d.clk.Sleep(ctx, d.t.fieldPause)
}

// submit clicks the login button, or submits the first form when no
// button matches.
func (d *loginDriver) submit(ctx context.Context) error {
	var found bool
	if err := d.page.Evaluate(ctx, markSubmitControlJS, &found); err != nil {
		return fmt.Errorf("iconcollector: locating submit control: %w", err)
	}
	if found {
		d.logger.Info().Msg("Clicking Log in button")
		return d.page.Click(ctx, submitMarkSelector)
	}

	d.logger.Warn().Msg("No Log in button found, submitting form")
	var submitted bool
	if err := d.page.Evaluate(ctx, submitFirstFormJS, &submitted); err != nil {
		return fmt.Errorf("iconcollector: submitting login form: %w", err)
	}
	if !submitted {
		return ErrLoginControlNotFound
	}
	return nil
}
