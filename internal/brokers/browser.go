package brokers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/incognish/incognish/internal/captcha"
)

// ErrBrowserUnavailable is returned when Chrome cannot be started.
var ErrBrowserUnavailable = errors.New("browser unavailable")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Page is one browser tab bound to the context it was opened with.
//
// Selectors starting with "/" or "(" are evaluated as XPath, everything else
// as CSS. Element operations report whether the element was found.
type Page interface {
	Navigate(url string) error
	Title() (string, error)
	Location() (string, error)
	HTML() (string, error)
	Exists(selector string) (bool, error)
	Fill(selector, value string) (bool, error)
	// Choose picks a <select> option by label, falling back to the two-letter
	// upper-case value. Non-select elements are filled.
	Choose(selector, value string) (bool, error)
	Check(selector string) (bool, error)
	Click(selector string) (bool, error)
	// SubmitForm submits the form that owns the element.
	SubmitForm(selector string) (bool, error)
	SetResponseToken(kind captcha.Kind, token, callback string) error
	Sleep(d time.Duration) error
}

// Browser opens pages. The returned func closes the page.
type Browser interface {
	NewPage(ctx context.Context) (Page, func(), error)
}

// ChromeOptions configures ChromeBrowser.
type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	// Timeout bounds each page action.
	Timeout time.Duration
}

// ChromeBrowser drives a shared Chrome process with one tab per page. Chrome
// is started on first use and restarted after a failed start.
type ChromeBrowser struct {
	opts ChromeOptions

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

var _ Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser returns a browser that starts lazily.
func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ChromeBrowser{opts: opts}
}

func (b *ChromeBrowser) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx != nil && b.browserCtx.Err() == nil {
		return b.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	b.browserCtx = browserCtx
	b.cancelBrowser = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return browserCtx, nil
}

// NewPage opens a tab that is closed when ctx ends or the returned func runs.
func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, func(), error) {
	browserCtx, err := b.browser()
	if err != nil {
		return nil, nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	stop := context.AfterFunc(ctx, cancelTab)
	closePage := func() {
		stop()
		cancelTab()
	}
	if err := chromedp.Run(tabCtx); err != nil {
		closePage()
		return nil, nil, fmt.Errorf("%w: open tab: %v", ErrBrowserUnavailable, err)
	}
	return &chromePage{ctx: tabCtx, timeout: b.opts.Timeout}, closePage, nil
}

// Close stops Chrome if it is running.
func (b *ChromeBrowser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.cancelBrowser = nil
		b.browserCtx = nil
	}
}

type chromePage struct {
	ctx     context.Context
	timeout time.Duration
}

func (p *chromePage) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *chromePage) Navigate(url string) error {
	if err := p.run(chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Title() (string, error) {
	var title string
	err := p.run(chromedp.Title(&title))
	return title, err
}

func (p *chromePage) Location() (string, error) {
	var location string
	err := p.run(chromedp.Location(&location))
	return location, err
}

func (p *chromePage) HTML() (string, error) {
	var html string
	err := p.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Exists(selector string) (bool, error) {
	return p.element(selector, "", `return true;`)
}

func (p *chromePage) Fill(selector, value string) (bool, error) {
	return p.element(selector, value, jsFill)
}

func (p *chromePage) Choose(selector, value string) (bool, error) {
	return p.element(selector, value, `
if (el.tagName !== 'SELECT') { `+jsFill+` }
const want = v.trim().toLowerCase();
const code = v.trim().slice(0, 2).toUpperCase();
let opt = Array.from(el.options).find(o => o.text.trim().toLowerCase() === want);
if (!opt) opt = Array.from(el.options).find(o => o.value === code);
if (!opt) return false;
el.value = opt.value;
el.dispatchEvent(new Event('change', {bubbles: true}));
return true;`)
}

func (p *chromePage) Check(selector string) (bool, error) {
	return p.element(selector, "", `if (!el.checked) el.click(); return true;`)
}

func (p *chromePage) Click(selector string) (bool, error) {
	return p.element(selector, "", `el.scrollIntoView({block: 'center'}); el.click(); return true;`)
}

func (p *chromePage) SubmitForm(selector string) (bool, error) {
	return p.element(selector, "", `
const form = el.form || el.closest('form');
if (!form) return false;
if (form.requestSubmit) form.requestSubmit(); else form.submit();
return true;`)
}

func (p *chromePage) SetResponseToken(kind captcha.Kind, token, callback string) error {
	field := "g-recaptcha-response"
	if kind == captcha.KindTurnstile {
		field = "cf-turnstile-response"
	}
	script := fmt.Sprintf(`(function(field, token, callback) {
document.querySelectorAll('[name="' + field + '"]').forEach(function(el) { el.value = token; });
if (callback && typeof window[callback] === 'function') window[callback](token);
return true;
})(%s, %s, %s)`, jsString(field), jsString(token), jsString(callback))
	var ok bool
	return p.run(chromedp.Evaluate(script, &ok))
}

func (p *chromePage) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-timer.C:
		return nil
	}
}

const jsFill = `
el.focus();
const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
const desc = Object.getOwnPropertyDescriptor(proto, 'value');
if (desc && desc.set && (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement)) desc.set.call(el, v); else el.value = v;
el.dispatchEvent(new Event('input', {bubbles: true}));
el.dispatchEvent(new Event('change', {bubbles: true}));
return true;`

// element runs body with el bound to the first match of selector and v bound
// to value. It yields false when nothing matches.
func (p *chromePage) element(selector, value, body string) (bool, error) {
	script := fmt.Sprintf(`(function(s, v) {
function q(s) {
  if (s[0] === '/' || s[0] === '(') {
    return document.evaluate(s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  }
  return document.querySelector(s);
}
const el = q(s);
if (!el) return false;
%s
})(%s, %s)`, body, jsString(selector), jsString(value))

	var found bool
	if err := p.run(chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("evaluate %q: %w", selector, err)
	}
	return found, nil
}

func jsString(value string) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}
